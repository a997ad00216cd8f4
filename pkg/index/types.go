// Package index holds the per-file extraction record store: definitions,
// calls, and imports keyed by project-relative path, invalidated by file
// fingerprint (mtime + size) and persisted to a bbolt database.
package index

// Kind classifies a Definition.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindInterface Kind = "interface"
	KindModule    Kind = "module"
	KindOther     Kind = "other" // Tag carries the registry capture suffix, e.g. "object"
)

// Span is a byte range plus 1-based inclusive line range.
type Span struct {
	StartByte uint32
	EndByte   uint32
	StartLine uint32
	EndLine   uint32
}

// Contains reports whether byte offset b falls within the span.
func (s Span) Contains(b uint32) bool {
	return b >= s.StartByte && b < s.EndByte
}

// Len returns the byte length of the span, used to break ties between
// nested definitions in caller attribution (smallest span wins).
func (s Span) Len() uint32 {
	return s.EndByte - s.StartByte
}

// Definition is a named, located declaration. Identity within the index is
// (File, Name) — two files may legitimately define the same name.
type Definition struct {
	Name      string
	Kind      Kind
	Tag       string // populated when Kind == KindOther, e.g. "object"
	Span      Span
	File      string
	Signature string
}

// ResolvedCall is the optional output of a resolver (heuristic or LSP).
type ResolvedCall struct {
	TargetFile   string
	TargetName   string
	TargetSpan   Span
	Signature    string
	ReceiverType string
}

// Call is a textual call site, optionally attributed to its enclosing
// definition and optionally pre-resolved to a target.
type Call struct {
	Callee    string
	Qualifier string
	Span      Span
	File      string
	Caller    string
	Resolved  *ResolvedCall
}

// Import is a normalized import/include/use statement.
type Import struct {
	ModulePath string
	Alias      string
	Span       Span
	File       string
}

// FileRecord holds every entity extracted from a single file, keyed by the
// file's project-relative path and fingerprint.
type FileRecord struct {
	Path        string
	Mtime       int64 // Unix nanoseconds
	Size        int64
	Definitions []Definition
	Calls       []Call
	Imports     []Import
}
