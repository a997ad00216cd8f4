package registry

// table returns the static list of supported languages. It is built once
// and cached by registry.ensure(). Definition queries generalize to the
// kind vocabulary function/method/class/struct/enum/trait/interface/module;
// anything else a grammar might define falls back to @definition.object.
func table() []*Entry {
	return []*Entry{
		{
			Name:       "go",
			Extensions: []string{".go"},
			SourceRepo: "tree-sitter/tree-sitter-go",
			CSymbol:    "tree_sitter_go",
			DefinitionQuery: `
				(function_declaration name: (identifier) @name) @definition.function
				(method_declaration name: (field_identifier) @name) @definition.method
				(type_declaration (type_spec name: (type_identifier) @name type: (struct_type))) @definition.struct
				(type_declaration (type_spec name: (type_identifier) @name type: (interface_type))) @definition.interface
				(type_declaration (type_spec name: (type_identifier) @name)) @definition.object
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
				(call_expression function: (selector_expression field: (field_identifier) @name) operand: (identifier) @qualifier) @call
			`,
			ImportQuery: `
				(import_spec path: (interpreted_string_literal) @path name: (package_identifier) @alias)
				(import_spec path: (interpreted_string_literal) @path)
			`,
			LSP: &LSPConfig{
				Binary:     "gopls",
				Args:       []string{"serve"},
				Install:    InstallGo,
				GoModule:   "golang.org/x/tools/gopls@latest",
				LanguageID: "go",
			},
		},
		{
			Name:       "python",
			Extensions: []string{".py", ".pyi"},
			Shebangs:   []string{"python", "python2", "python3"},
			SourceRepo: "tree-sitter/tree-sitter-python",
			CSymbol:    "tree_sitter_python",
			DefinitionQuery: `
				(function_definition name: (identifier) @name) @definition.function
				(class_definition name: (identifier) @name) @definition.class
			`,
			CallQuery: `
				(call function: (identifier) @name) @call
				(call function: (attribute object: (identifier) @qualifier attribute: (identifier) @name)) @call
			`,
			ImportQuery: `
				(import_statement name: (dotted_name) @module)
				(import_from_statement module_name: (dotted_name) @module)
				(aliased_import name: (dotted_name) @module alias: (identifier) @alias)
			`,
			LSP: &LSPConfig{
				Binary:     "pyright-langserver",
				Args:       []string{"--stdio"},
				Install:    InstallNPM,
				NPMPackage: "pyright",
				LanguageID: "python",
			},
		},
		{
			Name:       "typescript",
			Extensions: []string{".ts"},
			SourceRepo: "tree-sitter/tree-sitter-typescript",
			Subpath:    "typescript",
			CSymbol:    "tree_sitter_typescript",
			DefinitionQuery: `
				(function_declaration name: (identifier) @name) @definition.function
				(method_definition name: (property_identifier) @name) @definition.method
				(class_declaration name: (type_identifier) @name) @definition.class
				(interface_declaration name: (type_identifier) @name) @definition.interface
				(enum_declaration name: (identifier) @name) @definition.enum
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
				(call_expression function: (member_expression object: (identifier) @qualifier property: (property_identifier) @name)) @call
				(new_expression constructor: (identifier) @name) @call
			`,
			ImportQuery: `
				(import_statement source: (string) @source)
				(import_statement (import_clause (namespace_import (identifier) @alias)) source: (string) @source)
			`,
			LSP: &LSPConfig{
				Binary:     "typescript-language-server",
				Args:       []string{"--stdio"},
				Install:    InstallNPM,
				NPMPackage: "typescript-language-server",
				LanguageID: "typescript",
			},
		},
		{
			Name:       "javascript",
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			SourceRepo: "tree-sitter/tree-sitter-javascript",
			CSymbol:    "tree_sitter_javascript",
			DefinitionQuery: `
				(function_declaration name: (identifier) @name) @definition.function
				(method_definition name: (property_identifier) @name) @definition.method
				(class_declaration name: (identifier) @name) @definition.class
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
				(call_expression function: (member_expression object: (identifier) @qualifier property: (property_identifier) @name)) @call
				(new_expression constructor: (identifier) @name) @call
			`,
			ImportQuery: `
				(import_statement source: (string) @source)
			`,
			LSP: &LSPConfig{
				Binary:     "typescript-language-server",
				Args:       []string{"--stdio"},
				Install:    InstallNPM,
				NPMPackage: "typescript-language-server",
				LanguageID: "javascript",
			},
		},
		{
			Name:       "rust",
			Extensions: []string{".rs"},
			SourceRepo: "tree-sitter/tree-sitter-rust",
			CSymbol:    "tree_sitter_rust",
			DefinitionQuery: `
				(function_item name: (identifier) @name) @definition.function
				(struct_item name: (type_identifier) @name) @definition.struct
				(enum_item name: (type_identifier) @name) @definition.enum
				(trait_item name: (type_identifier) @name) @definition.trait
				(mod_item name: (identifier) @name) @definition.module
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
				(call_expression function: (field_expression value: (identifier) @qualifier field: (field_identifier) @name)) @call
			`,
			ImportQuery: `
				(use_declaration argument: (scoped_identifier) @module)
				(use_declaration argument: (use_as_clause path: (scoped_identifier) @module alias: (identifier) @alias))
			`,
			LSP: &LSPConfig{
				Binary:      "rust-analyzer",
				Install:     InstallDownload,
				ArchiveKind: "gz",
				DownloadURLs: map[string]string{
					"linux-amd64":  "https://github.com/rust-lang/rust-analyzer/releases/latest/download/rust-analyzer-x86_64-unknown-linux-gnu.gz",
					"darwin-amd64": "https://github.com/rust-lang/rust-analyzer/releases/latest/download/rust-analyzer-x86_64-apple-darwin.gz",
					"darwin-arm64": "https://github.com/rust-lang/rust-analyzer/releases/latest/download/rust-analyzer-aarch64-apple-darwin.gz",
				},
				LanguageID: "rust",
			},
		},
		{
			Name:       "java",
			Extensions: []string{".java"},
			SourceRepo: "tree-sitter/tree-sitter-java",
			CSymbol:    "tree_sitter_java",
			DefinitionQuery: `
				(method_declaration name: (identifier) @name) @definition.method
				(constructor_declaration name: (identifier) @name) @definition.method
				(class_declaration name: (identifier) @name) @definition.class
				(interface_declaration name: (identifier) @name) @definition.interface
				(enum_declaration name: (identifier) @name) @definition.enum
			`,
			CallQuery: `
				(method_invocation name: (identifier) @name) @call
				(method_invocation object: (identifier) @qualifier name: (identifier) @name) @call
			`,
			ImportQuery: `
				(import_declaration (scoped_identifier) @module)
			`,
		},
		{
			Name:       "c",
			Extensions: []string{".c", ".h"},
			SourceRepo: "tree-sitter/tree-sitter-c",
			CSymbol:    "tree_sitter_c",
			DefinitionQuery: `
				(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition.function
				(struct_specifier name: (type_identifier) @name) @definition.struct
				(enum_specifier name: (type_identifier) @name) @definition.enum
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
			`,
			ImportQuery: `
				(preproc_include path: (string_literal) @local_path)
				(preproc_include path: (system_lib_string) @system_path)
			`,
		},
		{
			Name:       "cpp",
			Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hxx"},
			SourceRepo: "tree-sitter/tree-sitter-cpp",
			CSymbol:    "tree_sitter_cpp",
			DefinitionQuery: `
				(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition.function
				(function_definition declarator: (function_declarator declarator: (qualified_identifier name: (identifier) @name))) @definition.method
				(class_specifier name: (type_identifier) @name) @definition.class
				(struct_specifier name: (type_identifier) @name) @definition.struct
				(enum_specifier name: (type_identifier) @name) @definition.enum
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
				(call_expression function: (field_expression field: (field_identifier) @name)) @call
			`,
			ImportQuery: `
				(preproc_include path: (string_literal) @local_path)
				(preproc_include path: (system_lib_string) @system_path)
			`,
		},
		{
			Name:       "zig",
			Extensions: []string{".zig"},
			SourceRepo: "tree-sitter-grammars/tree-sitter-zig",
			CSymbol:    "tree_sitter_zig",
			DefinitionQuery: `
				(function_declaration name: (identifier) @name) @definition.function
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
			`,
			ImportQuery: `
				(variable_declaration (identifier) @alias value: (call_expression function: (builtin_identifier) @_b arguments: (arguments (string) @path)))
			`,
			LSP: &LSPConfig{
				Binary:      "zls",
				Install:     InstallDownload,
				ArchiveKind: "tar.xz",
				LanguageID:  "zig",
			},
		},
		{
			Name:       "ruby",
			Extensions: []string{".rb"},
			Filenames:  []string{"Rakefile", "Gemfile"},
			Shebangs:   []string{"ruby"},
			SourceRepo: "tree-sitter/tree-sitter-ruby",
			CSymbol:    "tree_sitter_ruby",
			DefinitionQuery: `
				(method name: (identifier) @name) @definition.method
				(singleton_method name: (identifier) @name) @definition.method
				(class name: (constant) @name) @definition.class
				(module name: (constant) @name) @definition.module
			`,
			CallQuery: `
				(call method: (identifier) @name) @call
				(call receiver: (identifier) @qualifier method: (identifier) @name) @call
			`,
			ImportQuery: `
				(call method: (identifier) @_req arguments: (argument_list (string (string_content) @path)))
			`,
		},
		{
			Name:       "php",
			Extensions: []string{".php"},
			SourceRepo: "tree-sitter/tree-sitter-php",
			Subpath:    "php",
			CSymbol:    "tree_sitter_php",
			DefinitionQuery: `
				(function_definition name: (name) @name) @definition.function
				(method_declaration name: (name) @name) @definition.method
				(class_declaration name: (name) @name) @definition.class
				(interface_declaration name: (name) @name) @definition.interface
				(trait_declaration name: (name) @name) @definition.trait
			`,
			CallQuery: `
				(function_call_expression function: (name) @name) @call
				(member_call_expression name: (name) @name) @call
			`,
			ImportQuery: `
				(namespace_use_declaration (namespace_use_clause (qualified_name) @module))
			`,
		},
		{
			Name:       "csharp",
			Extensions: []string{".cs"},
			SourceRepo: "tree-sitter/tree-sitter-c-sharp",
			CSymbol:    "tree_sitter_c_sharp",
			DefinitionQuery: `
				(method_declaration name: (identifier) @name) @definition.method
				(class_declaration name: (identifier) @name) @definition.class
				(interface_declaration name: (identifier) @name) @definition.interface
				(struct_declaration name: (identifier) @name) @definition.struct
				(enum_declaration name: (identifier) @name) @definition.enum
			`,
			CallQuery: `
				(invocation_expression function: (identifier) @name) @call
				(invocation_expression function: (member_access_expression name: (identifier) @name)) @call
			`,
			ImportQuery: `
				(using_directive (qualified_name) @module)
			`,
		},
		{
			Name:       "kotlin",
			Extensions: []string{".kt", ".kts"},
			SourceRepo: "tree-sitter-grammars/tree-sitter-kotlin",
			CSymbol:    "tree_sitter_kotlin",
			DefinitionQuery: `
				(function_declaration (simple_identifier) @name) @definition.function
				(class_declaration (type_identifier) @name) @definition.class
				(object_declaration (type_identifier) @name) @definition.object
			`,
			CallQuery: `
				(call_expression (simple_identifier) @name) @call
			`,
			ImportQuery: `
				(import_header (identifier) @module)
			`,
		},
		{
			Name:       "scala",
			Extensions: []string{".scala", ".sc"},
			SourceRepo: "tree-sitter/tree-sitter-scala",
			CSymbol:    "tree_sitter_scala",
			DefinitionQuery: `
				(function_definition name: (identifier) @name) @definition.function
				(class_definition name: (identifier) @name) @definition.class
				(object_definition name: (identifier) @name) @definition.object
				(trait_definition name: (identifier) @name) @definition.trait
			`,
			CallQuery: `
				(call_expression function: (identifier) @name) @call
			`,
			ImportQuery: `
				(import_declaration path: (stable_identifier) @module)
			`,
		},
		{
			Name:       "bash",
			Extensions: []string{".sh", ".bash"},
			Filenames:  []string{"Makefile"},
			Shebangs:   []string{"sh", "bash"},
			SourceRepo: "tree-sitter/tree-sitter-bash",
			CSymbol:    "tree_sitter_bash",
			DefinitionQuery: `
				(function_definition name: (word) @name) @definition.function
			`,
			CallQuery: `
				(command name: (command_name (word) @name)) @call
			`,
			ImportQuery: `
				(command name: (command_name (word) @_src) argument: (word) @path)
			`,
		},
	}
}
