package index

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"bugscope/internal/crawler"
	"bugscope/internal/extractor"
)

// LineRange is a 1-based inclusive line span.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entry locates one declaration in one file.
type Entry struct {
	File  string    `json:"file"`
	Range LineRange `json:"range"`
}

// ClassEntry locates one class declaration and carries its precomputed
// signature text.
type ClassEntry struct {
	File      string    `json:"file"`
	Range     LineRange `json:"range"`
	Signature string    `json:"signature"`
}

// Indices is the structural index of one project root. It is immutable after
// Build returns, so concurrent readers need no locking.
type Indices struct {
	ProjectRoot string

	// class name -> all declarations of that name
	Class map[string][]ClassEntry
	// class name -> method name -> declarations
	ClassMethod map[string]map[string][]Entry
	// top-level function name -> declarations
	Function map[string][]Entry
	// class name -> direct superclass names (name-based, approximate)
	Relation map[string][]string
	// files that parsed successfully, absolute paths, sorted
	ParsedFiles []string
}

// Builder builds and memoizes Indices per canonical project root. Safe for
// concurrent use by multiple retrieval sessions.
type Builder struct {
	ext *extractor.Extractor
	cr  *crawler.Crawler

	mu    sync.Mutex
	cache map[string]*Indices
}

// NewBuilder creates a builder using the given extractor for parsing.
func NewBuilder(ext *extractor.Extractor, cr *crawler.Crawler) *Builder {
	return &Builder{
		ext:   ext,
		cr:    cr,
		cache: make(map[string]*Indices),
	}
}

// Build parses every eligible source file under projectRoot once and returns
// the structural indices. Results are memoized by canonical absolute root
// path. Individual files that fail to parse are skipped; a project with zero
// parseable files yields empty indices, not an error.
func (b *Builder) Build(ctx context.Context, projectRoot string) (*Indices, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	absRoot = filepath.Clean(absRoot)

	b.mu.Lock()
	if cached, ok := b.cache[absRoot]; ok {
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	ix, err := b.buildFresh(ctx, absRoot)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cached, ok := b.cache[absRoot]; ok {
		// another session built it first; keep the winner
		return cached, nil
	}
	b.cache[absRoot] = ix
	return ix, nil
}

func (b *Builder) buildFresh(ctx context.Context, absRoot string) (*Indices, error) {
	ix := &Indices{
		ProjectRoot: absRoot,
		Class:       make(map[string][]ClassEntry),
		ClassMethod: make(map[string]map[string][]Entry),
		Function:    make(map[string][]Entry),
		Relation:    make(map[string][]string),
	}

	files, err := b.cr.FindSourceFiles(absRoot)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := b.ext.SummarizeFile(ctx, file)
		if err != nil {
			// a partial index beats no index; skip the file
			continue
		}
		ix.ParsedFiles = append(ix.ParsedFiles, file)
		ix.addSummary(summary)
	}
	return ix, nil
}

func (ix *Indices) addSummary(summary *extractor.FileSummary) {
	for _, class := range summary.Classes {
		ix.Class[class.Name] = append(ix.Class[class.Name], ClassEntry{
			File:      summary.Path,
			Range:     LineRange{Start: class.StartLine, End: class.EndLine},
			Signature: class.Signature,
		})
		ix.Relation[class.Name] = class.Supers
	}
	for _, method := range summary.Methods {
		entry := Entry{
			File:  summary.Path,
			Range: LineRange{Start: method.StartLine, End: method.EndLine},
		}
		if method.Class == "" {
			ix.Function[method.Name] = append(ix.Function[method.Name], entry)
			continue
		}
		methods, ok := ix.ClassMethod[method.Class]
		if !ok {
			methods = make(map[string][]Entry)
			ix.ClassMethod[method.Class] = methods
		}
		methods[method.Name] = append(methods[method.Name], entry)
	}
}

// MatchFiles returns the parsed files whose absolute path ends with name,
// compared case-insensitively.
func (ix *Indices) MatchFiles(name string) []string {
	target := strings.ToLower(name)
	var matches []string
	for _, file := range ix.ParsedFiles {
		if strings.HasSuffix(strings.ToLower(file), target) {
			matches = append(matches, file)
		}
	}
	return matches
}

// FileLineToClassAndFunc resolves which class and function a file line sits
// in. Either name may come back empty. Iteration is over sorted keys so the
// answer is deterministic when spans overlap.
func (ix *Indices) FileLineToClassAndFunc(file string, line int) (string, string) {
	classNames := make([]string, 0, len(ix.ClassMethod))
	for name := range ix.ClassMethod {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)
	for _, className := range classNames {
		methods := ix.ClassMethod[className]
		methodNames := make([]string, 0, len(methods))
		for name := range methods {
			methodNames = append(methodNames, name)
		}
		sort.Strings(methodNames)
		for _, methodName := range methodNames {
			for _, entry := range methods[methodName] {
				if entry.File == file && entry.Range.Start <= line && line <= entry.Range.End {
					return className, methodName
				}
			}
		}
	}

	funcNames := make([]string, 0, len(ix.Function))
	for name := range ix.Function {
		funcNames = append(funcNames, name)
	}
	sort.Strings(funcNames)
	for _, funcName := range funcNames {
		for _, entry := range ix.Function[funcName] {
			if entry.File == file && entry.Range.Start <= line && line <= entry.Range.End {
				return "", funcName
			}
		}
	}
	return "", ""
}
