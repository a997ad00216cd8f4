package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DirName is the directory under a project root that holds the persisted
// index database, mirroring the original's INDEX_DIR constant.
const DirName = ".glimpse-index"

var (
	bucketFiles = []byte("files")
	bucketMeta  = []byte("meta")

	metaKeyVersion = []byte("version")
)

// dbPath returns <root>/<DirName>/index.db.
func dbPath(root string) string {
	return filepath.Join(root, DirName, "index.db")
}

// Save persists every FileRecord into a bbolt database under
// <root>/<DirName>/index.db. Each db.Update call either fully commits or
// leaves the prior file untouched, giving the same atomicity a
// write-to-temp-plus-rename encoder would, without hand-rolling one.
func (ix *Index) Save(root string) error {
	path := dbPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}
	defer db.Close()

	files := ix.Files()

	return db.Update(func(tx *bolt.Tx) error {
		// Recreate the files bucket from scratch so stale entries from a
		// prior generation don't linger.
		_ = tx.DeleteBucket(bucketFiles)
		fb, err := tx.CreateBucket(bucketFiles)
		if err != nil {
			return err
		}
		for _, rec := range files {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshaling record %q: %w", rec.Path, err)
			}
			if err := fb.Put([]byte(rec.Path), data); err != nil {
				return err
			}
		}

		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		versionBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(versionBytes, ix.version)
		return mb.Put(metaKeyVersion, versionBytes)
	})
}

// Load reads a previously-saved index from <root>/<DirName>/index.db. It
// returns (nil, nil) when no persisted index exists, or when the stored
// version does not match CurrentVersion — both are treated as absent.
func Load(root string) (*Index, error) {
	path := dbPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	defer db.Close()

	ix := New()
	var absent bool

	err = db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		if mb == nil {
			absent = true
			return nil
		}
		versionBytes := mb.Get(metaKeyVersion)
		if len(versionBytes) != 4 || binary.BigEndian.Uint32(versionBytes) != CurrentVersion {
			absent = true
			return nil
		}

		fb := tx.Bucket(bucketFiles)
		if fb == nil {
			return nil
		}
		return fb.ForEach(func(k, v []byte) error {
			var rec FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling record %q: %w", k, err)
			}
			ix.files[rec.Path] = &rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if absent {
		return nil, nil
	}
	return ix, nil
}

// Clear removes the persisted index database under root, if present.
func Clear(root string) error {
	path := filepath.Join(root, DirName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(path)
}
