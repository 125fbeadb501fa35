package search

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"bugscope/internal/index"
)

// resultShowLimit caps how many results are shown in full detail; the rest
// are collapsed to file or method granularity, never silently dropped.
const resultShowLimit = 3

// Backend answers search queries over the immutable indices of one project.
// "Not found" is reported as ok=false with an explanatory string, never an
// error: errors are reserved for unexpected I/O failures.
type Backend struct {
	projectRoot string
	ix          *index.Indices
}

// NewBackend wraps built indices in a query layer.
func NewBackend(ix *index.Indices) *Backend {
	return &Backend{projectRoot: ix.ProjectRoot, ix: ix}
}

// ProjectRoot returns the indexed project root.
func (b *Backend) ProjectRoot() string { return b.projectRoot }

// Indices exposes the underlying indices for read-only use.
func (b *Backend) Indices() *index.Indices { return b.ix }

func (b *Backend) methodsInClass(methodName, className string) []Result {
	var results []Result
	methods, ok := b.ix.ClassMethod[className]
	if !ok {
		return results
	}
	for _, entry := range methods[methodName] {
		code, err := CodeSnippet(entry.File, entry.Range.Start, entry.Range.End)
		if err != nil {
			continue
		}
		results = append(results, Result{
			File:      entry.File,
			Start:     entry.Range.Start,
			End:       entry.Range.End,
			ClassName: className,
			FuncName:  methodName,
			Code:      code,
		})
	}
	return results
}

func (b *Backend) methodsInAllClasses(methodName string) []Result {
	var results []Result
	// sorted class order keeps multi-class results deterministic
	for _, className := range b.sortedClassNames() {
		results = append(results, b.methodsInClass(methodName, className)...)
	}
	return results
}

func (b *Backend) sortedClassNames() []string {
	names := make([]string, 0, len(b.ix.Class))
	for name := range b.ix.Class {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Backend) topLevelFuncs(funcName string) []Result {
	var results []Result
	for _, entry := range b.ix.Function[funcName] {
		code, err := CodeSnippet(entry.File, entry.Range.Start, entry.Range.End)
		if err != nil {
			continue
		}
		results = append(results, Result{
			File:     entry.File,
			Start:    entry.Range.Start,
			End:      entry.Range.End,
			FuncName: funcName,
			Code:     code,
		})
	}
	return results
}

// methodsAnywhere unions top-level functions and class methods of this name.
func (b *Backend) methodsAnywhere(methodName string) []Result {
	results := b.topLevelFuncs(methodName)
	return append(results, b.methodsInAllClasses(methodName)...)
}

// SearchClass searches for a class by exact name. Only class signatures are
// returned; use SearchClassInFile or GetClassFullSnippet for full bodies.
func (b *Backend) SearchClass(className string) (string, []Result, bool) {
	entries, ok := b.ix.Class[className]
	if !ok || len(entries) == 0 {
		return fmt.Sprintf("Could not find class %s in the codebase.", className), nil, false
	}

	var results []Result
	for _, entry := range entries {
		results = append(results, Result{
			File:      entry.File,
			Start:     entry.Range.Start,
			End:       entry.Range.End,
			ClassName: className,
			Code:      entry.Signature,
		})
	}

	out := fmt.Sprintf("Found %d classes with name %s in the codebase:\n\n", len(results), className)
	if len(results) > resultShowLimit {
		out += "They appeared in the following files:\n"
		out += CollapseToFileLevel(results, b.projectRoot)
	} else {
		for idx, res := range results {
			out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
		}
	}
	return out, results[:min(len(results), resultShowLimit)], true
}

// SearchClassInFile searches for a class inside files whose path matches the
// given name (case-insensitive suffix match). Full class bodies are returned.
func (b *Backend) SearchClassInFile(className, fileName string) (string, []Result, bool) {
	candidates := b.ix.MatchFiles(fileName)
	if len(candidates) == 0 {
		return fmt.Sprintf("Could not find file %s in the codebase.", fileName), nil, false
	}
	entries, ok := b.ix.Class[className]
	if !ok {
		return fmt.Sprintf("Could not find class %s in the codebase.", className), nil, false
	}

	candidateSet := toSet(candidates)
	var results []Result
	for _, entry := range entries {
		if !candidateSet[entry.File] {
			continue
		}
		code, err := CodeSnippet(entry.File, entry.Range.Start, entry.Range.End)
		if err != nil {
			continue
		}
		results = append(results, Result{
			File:      entry.File,
			Start:     entry.Range.Start,
			End:       entry.Range.End,
			ClassName: className,
			Code:      code,
		})
	}
	if len(results) == 0 {
		return fmt.Sprintf("Could not find class %s in file %s.", className, fileName), nil, false
	}

	out := fmt.Sprintf("Found %d classes with name %s in file %s:\n\n", len(results), className, fileName)
	for idx, res := range results {
		out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
	}
	return out, results, true
}

// SearchMethodInFile searches for a method (top-level or in any class) inside
// matching files.
func (b *Backend) SearchMethodInFile(methodName, fileName string) (string, []Result, bool) {
	candidates := b.ix.MatchFiles(fileName)
	if len(candidates) == 0 {
		return fmt.Sprintf("Could not find file %s in the codebase.", fileName), nil, false
	}

	all := b.methodsAnywhere(methodName)
	if len(all) == 0 {
		return fmt.Sprintf("The method %s does not appear in the codebase.", methodName), nil, false
	}

	candidateSet := toSet(candidates)
	var results []Result
	for _, res := range all {
		if candidateSet[res.File] {
			results = append(results, res)
		}
	}
	if len(results) == 0 {
		return fmt.Sprintf("There is no method with name `%s` in file %s.", methodName, fileName), nil, false
	}

	out := fmt.Sprintf("Found %d methods with name `%s` in file %s:\n\n", len(results), methodName, fileName)
	// a single file rarely has many same-named methods; show them all
	for idx, res := range results {
		out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
	}
	return out, results, true
}

// SearchMethodInClass searches for a method declared in the named class.
func (b *Backend) SearchMethodInClass(methodName, className string) (string, []Result, bool) {
	if _, ok := b.ix.Class[className]; !ok {
		return fmt.Sprintf("Could not find class %s in the codebase.", className), nil, false
	}
	results := b.methodsInClass(methodName, className)
	if len(results) == 0 {
		return fmt.Sprintf("Could not find method %s in class %s.", methodName, className), nil, false
	}

	out := fmt.Sprintf("Found %d methods with name %s in class %s:\n\n", len(results), methodName, className)
	if len(results) > resultShowLimit {
		out += fmt.Sprintf("Too many results, showing full code for %d of them, and the rest just file names:\n", resultShowLimit)
	}
	shown := results[:min(len(results), resultShowLimit)]
	for idx, res := range shown {
		out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
	}
	if rest := results[len(shown):]; len(rest) > 0 {
		out += "Other results are in these files:\n"
		out += CollapseToFileLevel(rest, b.projectRoot)
	}
	return out, shown, true
}

// SearchMethod searches for a method across the whole project, both
// top-level and class scopes.
func (b *Backend) SearchMethod(methodName string) (string, []Result, bool) {
	results := b.methodsAnywhere(methodName)
	if len(results) == 0 {
		return fmt.Sprintf("Could not find method %s in the codebase.", methodName), nil, false
	}

	out := fmt.Sprintf("Found %d methods with name %s in the codebase:\n\n", len(results), methodName)
	if len(results) > resultShowLimit {
		out += "They appeared in the following files:\n"
		out += CollapseToFileLevel(results, b.projectRoot)
	} else {
		for idx, res := range results {
			out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
		}
	}
	return out, results[:min(len(results), resultShowLimit)], true
}

// SearchCode scans every parsed file for a literal code string. Each
// occurrence reports its surrounding region and the enclosing class and
// function, resolved by reverse line-range lookup.
func (b *Backend) SearchCode(codeStr string) (string, []Result, bool) {
	var results []Result
	for _, file := range b.ix.ParsedFiles {
		matches, err := RegionsContainingString(file, codeStr)
		if err != nil {
			continue
		}
		for _, m := range matches {
			className, funcName := b.ix.FileLineToClassAndFunc(file, m.Line)
			results = append(results, Result{
				File:      file,
				Start:     m.Line,
				End:       m.Line,
				ClassName: className,
				FuncName:  funcName,
				Code:      m.Snippet,
			})
		}
	}
	if len(results) == 0 {
		return fmt.Sprintf("Could not find code %s in the codebase.", codeStr), nil, false
	}

	out := fmt.Sprintf("Found %d snippets containing `%s` in the codebase:\n\n", len(results), codeStr)
	if len(results) > resultShowLimit {
		out += "They appeared in the following files:\n"
		out += CollapseToFileLevel(results, b.projectRoot)
	} else {
		for idx, res := range results {
			out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
		}
	}
	return out, results[:min(len(results), resultShowLimit)], true
}

// SearchCodeInFile scans matching files for a literal code string. A
// trailing ")" is stripped from the needle, tolerating over-quoted calls.
func (b *Backend) SearchCodeInFile(codeStr, fileName string) (string, []Result, bool) {
	codeStr = strings.TrimSuffix(codeStr, ")")

	candidates := b.ix.MatchFiles(fileName)
	if len(candidates) == 0 {
		return fmt.Sprintf("Could not find file %s in the codebase.", fileName), nil, false
	}

	var results []Result
	for _, file := range candidates {
		matches, err := RegionsContainingString(file, codeStr)
		if err != nil {
			continue
		}
		for _, m := range matches {
			className, funcName := b.ix.FileLineToClassAndFunc(file, m.Line)
			results = append(results, Result{
				File:      file,
				Start:     m.Line,
				End:       m.Line,
				ClassName: className,
				FuncName:  funcName,
				Code:      m.Snippet,
			})
		}
	}
	if len(results) == 0 {
		return fmt.Sprintf("Could not find code %s in file %s.", codeStr, fileName), nil, false
	}

	out := fmt.Sprintf("Found %d snippets with code %s in file %s:\n\n", len(results), codeStr, fileName)
	if len(results) > resultShowLimit {
		out += "They appeared in the following methods:\n"
		out += CollapseToMethodLevel(results, b.projectRoot)
	} else {
		for idx, res := range results {
			out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
		}
	}
	return out, results[:min(len(results), resultShowLimit)], true
}

// GetCodeAroundLine returns a window of lines around lineNo in matching
// files. The returned results are the enclosing functions, not the windows:
// downstream consumers operate at function granularity.
func (b *Backend) GetCodeAroundLine(fileName, lineNoStr, windowStr string) (string, []Result, bool) {
	lineNo, err := strconv.Atoi(strings.TrimSpace(lineNoStr))
	if err != nil {
		return fmt.Sprintf("Invalid line number: %s.", lineNoStr), nil, false
	}
	window, err := strconv.Atoi(strings.TrimSpace(windowStr))
	if err != nil {
		return fmt.Sprintf("Invalid window size: %s.", windowStr), nil, false
	}

	candidates := b.ix.MatchFiles(fileName)
	if len(candidates) == 0 {
		return fmt.Sprintf("Could not find file %s in the codebase.", fileName), nil, false
	}

	var regionResults []Result
	var funcResults []Result
	for _, file := range candidates {
		snippet, ok, err := RegionAroundLine(file, lineNo, window)
		if err != nil || !ok {
			continue
		}
		className, funcName := b.ix.FileLineToClassAndFunc(file, lineNo)
		switch {
		case funcName != "" && className != "":
			_, res, _ := b.SearchMethodInClass(funcName, className)
			funcResults = append(funcResults, res...)
		case funcName != "":
			_, res, _ := b.SearchMethod(funcName)
			funcResults = append(funcResults, res...)
		}
		regionResults = append(regionResults, Result{
			File:      file,
			Start:     lineNo - window,
			End:       lineNo + window,
			ClassName: className,
			FuncName:  funcName,
			Code:      snippet,
		})
	}
	if len(regionResults) == 0 {
		return fmt.Sprintf("Line %d is invalid in file %s.", lineNo, fileName), nil, false
	}

	out := fmt.Sprintf("Found %d code snippets around line %d:\n\n", len(regionResults), lineNo)
	for idx, res := range regionResults {
		out += fmt.Sprintf("- Search result %d:\n```\n%s\n```\n", idx+1, res.TaggedString(b.projectRoot))
	}
	return out, funcResults, true
}

// GetClassFullSnippet returns complete class bodies for the named class.
// Not part of the query surface the oracle sees; used when resolving bug
// locations, where signatures alone are not enough.
func (b *Backend) GetClassFullSnippet(className string) (string, []Result, bool) {
	entries, ok := b.ix.Class[className]
	if !ok || len(entries) == 0 {
		return fmt.Sprintf("Could not find class %s in the codebase.", className), nil, false
	}

	var results []Result
	for _, entry := range entries {
		code, err := CodeSnippet(entry.File, entry.Range.Start, entry.Range.End)
		if err != nil {
			continue
		}
		results = append(results, Result{
			File:      entry.File,
			Start:     entry.Range.Start,
			End:       entry.Range.End,
			ClassName: className,
			Code:      code,
		})
	}
	if len(results) == 0 {
		return fmt.Sprintf("Could not find class %s in the codebase.", className), nil, false
	}

	out := fmt.Sprintf("Found %d classes with name %s in the codebase:\n\n", len(results), className)
	if len(results) > 2 {
		out += "Too many results, showing full code for 2 of them:\n"
	}
	shown := results[:min(len(results), 2)]
	for idx, res := range shown {
		out += fmt.Sprintf("- Search result %d:\n```\n%s\n```", idx+1, res.TaggedString(b.projectRoot))
	}
	return out, shown, true
}

// GetFileContent returns the whole content of the first file whose path
// matches fileName. Taking the first suffix match here, while class and
// method queries union all matches, mirrors the resolution policy downstream
// consumers rely on.
func (b *Backend) GetFileContent(fileName string) (string, []Result, bool) {
	candidates := b.ix.MatchFiles(fileName)
	if len(candidates) == 0 {
		return fmt.Sprintf("Could not find file %s in the codebase.", fileName), nil, false
	}

	file := candidates[0]
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Sprintf("Could not read file %s.", fileName), nil, false
	}
	content := string(data)
	length := len(strings.Split(content, "\n"))

	results := []Result{{File: file, Start: 1, End: length, Code: content}}
	out := fmt.Sprintf("<file>%s</file> <code>%s</code>", fileName, content)
	return out, results, true
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
