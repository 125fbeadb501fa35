package resolver

import (
	"fmt"
	"strings"

	"bugscope/internal/search"
)

// classContextIntent replaces the caller's intent on enclosing-class context
// locations, which are attached for orientation rather than for patching.
const classContextIntent = "This class provides additional context to the issue."

// Proposal is an imprecise location descriptor, typically produced by the
// oracle. Any subset of File, Class and Method may be set.
type Proposal struct {
	File             string `json:"file"`
	Class            string `json:"class"`
	Method           string `json:"method"`
	IntendedBehavior string `json:"intended_behavior"`
}

// BugLocation is a resolved, line-bounded code region plus a statement of the
// behavior the region should have. Immutable once returned.
type BugLocation struct {
	RelFile          string `json:"rel_file"`
	AbsFile          string `json:"abs_file"`
	Start            int    `json:"start"`
	End              int    `json:"end"`
	ClassName        string `json:"class_name,omitempty"`
	MethodName       string `json:"method_name,omitempty"`
	Code             string `json:"code"`
	IntendedBehavior string `json:"intended_behavior"`
}

func locationFromResult(res search.Result, projectRoot, intent string) BugLocation {
	return BugLocation{
		RelFile:          search.ToRelativePath(res.File, projectRoot),
		AbsFile:          res.File,
		Start:            res.Start,
		End:              res.End,
		ClassName:        res.ClassName,
		MethodName:       res.FuncName,
		Code:             res.Code,
		IntendedBehavior: intent,
	}
}

// Tagged renders the location for transcripts and logs.
func (l BugLocation) Tagged() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<file>%s</file>", l.RelFile)
	if l.ClassName != "" {
		fmt.Fprintf(&sb, " <class>%s</class>", l.ClassName)
	}
	if l.MethodName != "" {
		fmt.Fprintf(&sb, " <func>%s</func>", l.MethodName)
	}
	fmt.Fprintf(&sb, "\n<code>\n%s\n</code>", l.Code)
	return sb.String()
}

// region projects the location back onto its structural identity. Two
// locations naming the same region are duplicates even when their intents
// differ; the first-seen one wins.
func (l BugLocation) region() search.Result {
	return search.Result{
		File:      l.AbsFile,
		Start:     l.Start,
		End:       l.End,
		ClassName: l.ClassName,
		FuncName:  l.MethodName,
	}
}

// Resolver turns imprecise location proposals into line-bounded bug
// locations by trying progressively weaker searches.
type Resolver struct {
	backend *search.Backend
}

// NewResolver creates a resolver over the given search backend.
func NewResolver(backend *search.Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve applies the fallback search strategy to one proposal. At least one
// of file, class or method must be set; an empty proposal is a caller error.
// An unlocatable proposal yields an empty list, not an error.
func (r *Resolver) Resolve(p Proposal) ([]BugLocation, error) {
	fileName := strings.TrimSpace(p.File)
	className := strings.TrimSpace(p.Class)
	methodName := strings.TrimSpace(p.Method)

	// the oracle sometimes writes Class.method in the method field
	if className == "" && strings.Count(methodName, ".") == 1 {
		parts := strings.SplitN(methodName, ".", 2)
		className, methodName = parts[0], parts[1]
	}

	if fileName == "" && className == "" && methodName == "" {
		return nil, fmt.Errorf("bug location proposal has no file, class or method")
	}

	var results []search.Result
	var classContext []search.Result
	ok := false

	if methodName != "" && className != "" {
		var direct []search.Result
		_, direct, ok = r.backend.SearchMethodInClass(methodName, className)
		results = append(results, direct...)
		if ok {
			for _, res := range direct {
				if res.ClassName == "" || res.FuncName == "" || res.File == "" {
					continue
				}
				results = append(results, r.inheritedMethods(res.ClassName, res.FuncName)...)
				_, ctxRes, _ := r.backend.SearchClassInFile(res.ClassName, res.File)
				classContext = append(classContext, ctxRes...)
			}
		}
	}
	if !ok && methodName != "" && fileName != "" {
		_, results, ok = r.backend.SearchMethodInFile(methodName, fileName)
	}
	if !ok && className != "" && fileName != "" {
		_, results, ok = r.backend.SearchClassInFile(className, fileName)
	}
	if !ok && className != "" {
		_, results, ok = r.backend.GetClassFullSnippet(className)
	}
	if !ok && methodName != "" {
		_, results, ok = r.backend.SearchMethod(methodName)
	}
	if !ok && fileName != "" {
		_, results, ok = r.backend.GetFileContent(fileName)
	}
	if !ok {
		return nil, nil
	}

	root := r.backend.ProjectRoot()
	var locations []BugLocation
	for _, res := range results {
		if !res.HasSpan() {
			continue
		}
		locations = append(locations, locationFromResult(res, root, p.IntendedBehavior))
	}
	for _, res := range classContext {
		if !res.HasSpan() {
			continue
		}
		locations = append(locations, locationFromResult(res, root, classContextIntent))
	}
	return dedupe(locations), nil
}

// ResolveAll resolves each proposal in order and concatenates the results,
// deduplicating across proposals.
func (r *Resolver) ResolveAll(proposals []Proposal) ([]BugLocation, error) {
	var all []BugLocation
	for _, p := range proposals {
		locs, err := r.Resolve(p)
		if err != nil {
			return nil, err
		}
		all = append(all, locs...)
	}
	return dedupe(all), nil
}

// inheritedMethods walks the superclass relation breadth-first and returns
// the nearest ancestor redeclarations of methodName. The walk stops at the
// first depth where any ancestor matches; deeper ancestors are shadowed.
func (r *Resolver) inheritedMethods(className, methodName string) []search.Result {
	ix := r.backend.Indices()

	type item struct {
		name  string
		depth int
	}
	var queue []item
	for _, super := range ix.Relation[className] {
		queue = append(queue, item{name: super, depth: 1})
	}

	foundAt := -1
	var results []search.Result
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if foundAt != -1 && cur.depth > foundAt {
			break
		}
		if _, declared := ix.ClassMethod[cur.name][methodName]; declared {
			foundAt = cur.depth
			_, res, ok := r.backend.SearchMethodInClass(methodName, cur.name)
			if ok {
				results = append(results, res...)
			}
			continue
		}
		for _, super := range ix.Relation[cur.name] {
			queue = append(queue, item{name: super, depth: cur.depth + 1})
		}
	}
	return results
}

func dedupe(locations []BugLocation) []BugLocation {
	var unique []BugLocation
	for _, loc := range locations {
		seen := false
		for _, kept := range unique {
			if kept.region().Equal(loc.region()) {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, loc)
		}
	}
	return unique
}
