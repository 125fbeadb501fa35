package search

import (
	"fmt"
	"os"
	"strings"
)

// contextLines is how many lines before and after a code-string match are
// included in its reported region.
const contextLines = 3

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}

// CodeSnippet returns the numbered source lines in the 1-based inclusive
// range [start, end].
func CodeSnippet(path string, start, end int) (string, error) {
	lines, err := readLines(path)
	if err != nil {
		return "", err
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%d %s\n", i, lines[i-1])
	}
	return sb.String(), nil
}

// RegionAroundLine returns the numbered window of lines around lineNo, or
// ok=false when lineNo is outside the file.
func RegionAroundLine(path string, lineNo, window int) (string, bool, error) {
	lines, err := readLines(path)
	if err != nil {
		return "", false, err
	}
	if lineNo < 1 || lineNo > len(lines) {
		return "", false, nil
	}
	start := lineNo - window
	if start < 1 {
		start = 1
	}
	end := lineNo + window
	if end > len(lines) {
		end = len(lines)
	}
	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%d %s\n", i, lines[i-1])
	}
	return sb.String(), true, nil
}

// ContextMatch is one occurrence of a searched code string: the 1-based line
// where the match starts plus the surrounding numbered region.
type ContextMatch struct {
	Line    int
	Snippet string
}

// RegionsContainingString finds every literal occurrence of needle in the
// file and reports each with contextLines lines on either side. Matches may
// span multiple lines.
func RegionsContainingString(path, needle string) ([]ContextMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if needle == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")

	var matches []ContextMatch
	for pos := 0; ; {
		idx := strings.Index(content[pos:], needle)
		if idx == -1 {
			break
		}
		matchStart := pos + idx
		lineNo := strings.Count(content[:matchStart], "\n") + 1

		start := lineNo - contextLines
		if start < 1 {
			start = 1
		}
		end := lineNo + contextLines
		if end > len(lines) {
			end = len(lines)
		}
		var sb strings.Builder
		for i := start; i <= end; i++ {
			fmt.Fprintf(&sb, "%d %s\n", i, lines[i-1])
		}
		matches = append(matches, ContextMatch{Line: lineNo, Snippet: sb.String()})
		pos = matchStart + len(needle)
	}
	return matches, nil
}
