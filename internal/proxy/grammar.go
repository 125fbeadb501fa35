package proxy

import (
	"fmt"
	"strings"
)

// ParseCall parses a query-call expression of the form
//
//	name(arg1, arg2, ...)
//
// Arguments are string literals (single or double quoted), bare numbers or
// words. Keyword prefixes like name= are accepted and dropped, since the
// oracle often echoes parameter names from the API listing. This is a
// deliberately small grammar, not a source-language parser.
func ParseCall(invocation string) (string, []string, error) {
	s := strings.TrimSpace(invocation)

	open := strings.IndexByte(s, '(')
	if open <= 0 {
		return "", nil, fmt.Errorf("invalid function invocation: %s", invocation)
	}
	name := strings.TrimSpace(s[:open])
	if !isIdentifier(name) {
		return "", nil, fmt.Errorf("invalid function name in: %s", invocation)
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("unclosed invocation: %s", invocation)
	}

	inner := s[open+1 : len(s)-1]
	args, err := splitArgs(inner)
	if err != nil {
		return "", nil, fmt.Errorf("invalid arguments in %s: %w", invocation, err)
	}

	var cleaned []string
	for _, arg := range args {
		cleaned = append(cleaned, cleanArg(arg))
	}
	return name, cleaned, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
		digit := '0' <= r && r <= '9'
		if !alpha && !(i > 0 && digit) {
			return false
		}
	}
	return true
}

// splitArgs splits on top-level commas. Quoted sections may contain commas
// and parentheses; backslash escapes the next character inside quotes.
func splitArgs(inner string) ([]string, error) {
	if strings.TrimSpace(inner) == "" {
		return nil, nil
	}

	var args []string
	var cur strings.Builder
	var quote byte
	depth := 0
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(inner) {
				i++
				cur.WriteByte(inner[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
			cur.WriteByte(c)
		case c == ',' && depth == 0:
			args = append(args, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string literal")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	args = append(args, cur.String())
	return args, nil
}

func cleanArg(arg string) string {
	arg = strings.TrimSpace(arg)

	// drop a keyword prefix such as method_name=
	if eq := strings.IndexByte(arg, '='); eq > 0 {
		if isIdentifier(strings.TrimSpace(arg[:eq])) {
			arg = strings.TrimSpace(arg[eq+1:])
		}
	}

	if len(arg) >= 2 {
		first, last := arg[0], arg[len(arg)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			arg = arg[1 : len(arg)-1]
		}
	}
	return arg
}
