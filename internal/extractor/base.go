package extractor

import sitter "github.com/smacker/go-tree-sitter"

// ClassDef is a class (or class-like type) declaration found in one file.
// Line numbers are 1-based and inclusive.
type ClassDef struct {
	Name      string   `json:"name"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	// Supers is a name-based approximation of the direct superclass list.
	// Only plain identifier bases (and identifier-call bases) are recorded;
	// attribute or computed bases are ignored.
	Supers []string `json:"supers,omitempty"`
	// Signature holds the class header plus the signature lines of each
	// method, precomputed here so query time never re-parses the file.
	Signature string `json:"signature"`
}

// MethodDef is a function or method declaration found in one file.
// Class is empty for top-level functions.
type MethodDef struct {
	Name      string `json:"name"`
	Class     string `json:"class,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// FileSummary is everything the index builder needs from one parsed file.
type FileSummary struct {
	Path    string      `json:"path"`
	Classes []ClassDef  `json:"classes"`
	Methods []MethodDef `json:"methods"`
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	// Language returns the tree-sitter grammar for this language.
	Language() *sitter.Language
	// Extensions returns the file suffixes this extractor handles, with dot.
	Extensions() []string
	// Summarize walks a parsed tree and collects class/method declarations.
	Summarize(root *sitter.Node, source []byte) *FileSummary
}
