package search

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Result is one match produced by a search primitive.
// Line numbers are 1-based and inclusive; 0 means the span is unknown.
// ClassName and FuncName are empty when the match is not inside one.
type Result struct {
	File      string `json:"file"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	ClassName string `json:"class_name,omitempty"`
	FuncName  string `json:"func_name,omitempty"`
	Code      string `json:"code"`
}

// HasSpan reports whether the result carries a trustworthy line range.
func (r Result) HasSpan() bool {
	return r.Start > 0 && r.End > 0
}

// Equal is structural equality over everything except the code text, used
// for deduplication.
func (r Result) Equal(other Result) bool {
	return r.File == other.File &&
		r.Start == other.Start &&
		r.End == other.End &&
		r.ClassName == other.ClassName &&
		r.FuncName == other.FuncName
}

// ToRelativePath rewrites an absolute path inside projectRoot as a
// project-relative one. Paths outside the root are returned unchanged.
func ToRelativePath(absPath, projectRoot string) string {
	rel, err := filepath.Rel(projectRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}

func (r Result) taggedUptoFile(projectRoot string) string {
	return fmt.Sprintf("<file>%s</file>", ToRelativePath(r.File, projectRoot))
}

func (r Result) taggedUptoClass(projectRoot string) string {
	prefix := r.taggedUptoFile(projectRoot)
	if r.ClassName == "" {
		return prefix + "\n"
	}
	return fmt.Sprintf("%s\n<class>%s</class>", prefix, r.ClassName)
}

func (r Result) taggedUptoFunc(projectRoot string) string {
	prefix := r.taggedUptoClass(projectRoot)
	if r.FuncName == "" {
		return prefix
	}
	return fmt.Sprintf("%s <func>%s</func>", prefix, r.FuncName)
}

// TaggedString renders the result for the oracle transcript.
func (r Result) TaggedString(projectRoot string) string {
	return fmt.Sprintf("%s\n<code>\n%s\n</code>", r.taggedUptoFunc(projectRoot), r.Code)
}

// CollapseToFileLevel summarizes results as per-file match counts,
// preserving first-seen file order.
func CollapseToFileLevel(results []Result, projectRoot string) string {
	var order []string
	counts := make(map[string]int)
	for _, r := range results {
		if _, seen := counts[r.File]; !seen {
			order = append(order, r.File)
		}
		counts[r.File]++
	}
	var sb strings.Builder
	for _, file := range order {
		fmt.Fprintf(&sb, "- <file>%s</file> (%d matches)\n", ToRelativePath(file, projectRoot), counts[file])
	}
	return sb.String()
}

// CollapseToMethodLevel summarizes results as per-method match counts within
// each file, preserving first-seen order.
func CollapseToMethodLevel(results []Result, projectRoot string) string {
	const notInFunc = "Not in a function"

	type fileFuncs struct {
		file  string
		order []string
		count map[string]int
	}
	var order []*fileFuncs
	byFile := make(map[string]*fileFuncs)

	for _, r := range results {
		ff, ok := byFile[r.File]
		if !ok {
			ff = &fileFuncs{file: r.File, count: make(map[string]int)}
			byFile[r.File] = ff
			order = append(order, ff)
		}
		funcName := r.FuncName
		if funcName == "" {
			funcName = notInFunc
		}
		if _, seen := ff.count[funcName]; !seen {
			ff.order = append(ff.order, funcName)
		}
		ff.count[funcName]++
	}

	var sb strings.Builder
	for _, ff := range order {
		filePart := fmt.Sprintf("<file>%s</file>", ToRelativePath(ff.file, projectRoot))
		for _, funcName := range ff.order {
			funcPart := funcName
			if funcName != notInFunc {
				funcPart = fmt.Sprintf(" <func>%s</func>", funcName)
			}
			fmt.Fprintf(&sb, "- %s%s (%d matches)\n", filePart, funcPart, ff.count[funcName])
		}
	}
	return sb.String()
}
