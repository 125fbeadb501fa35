package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates structural extraction using language-specific extractors.
type Extractor struct {
	byExt map[string]LanguageExtractor
}

// NewExtractor creates an extractor for the given languages.
// Supported names: "go", "python".
func NewExtractor(langs ...string) (*Extractor, error) {
	e := &Extractor{byExt: make(map[string]LanguageExtractor)}
	for _, lang := range langs {
		var langExt LanguageExtractor
		switch lang {
		case "go":
			langExt = &GoExtractor{}
		case "python":
			langExt = &PythonExtractor{}
		default:
			return nil, fmt.Errorf("unsupported language: %s", lang)
		}
		for _, ext := range langExt.Extensions() {
			e.byExt[ext] = langExt
		}
	}
	if len(e.byExt) == 0 {
		return nil, fmt.Errorf("no languages configured")
	}
	return e, nil
}

// Extensions returns every file extension this extractor can parse.
func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.byExt))
	for ext := range e.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Handles reports whether a file with this name can be parsed.
func (e *Extractor) Handles(filename string) bool {
	_, ok := e.byExt[filepath.Ext(filename)]
	return ok
}

// SummarizeFile parses a single source file and extracts its class and
// method declarations. A read or parse failure is returned as an error;
// callers are expected to skip the file and continue.
func (e *Extractor) SummarizeFile(ctx context.Context, path string) (*FileSummary, error) {
	langExt, ok := e.byExt[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("no extractor for file %s", path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	tree, err := parseSource(ctx, langExt, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	defer tree.Close()

	summary := langExt.Summarize(tree.RootNode(), source)
	summary.Path = path
	return summary, nil
}

func parseSource(ctx context.Context, langExt LanguageExtractor, source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(langExt.Language())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("parser produced no tree")
	}
	// A tree containing error nodes is treated the same as an unparseable
	// file: the index must only contain spans we can trust.
	if root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("source contains syntax errors")
	}
	return tree, nil
}

// signatureLines slices the given 1-based inclusive line range out of source.
func signatureLines(source []byte, start, end int) string {
	lines := strings.Split(string(source), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
