package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python.
type PythonExtractor struct{}

func (p *PythonExtractor) Language() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonExtractor) Extensions() []string {
	return []string{".py"}
}

func (p *PythonExtractor) Summarize(root *sitter.Node, source []byte) *FileSummary {
	summary := &FileSummary{}
	var classStack []string
	p.walk(root, source, summary, classStack)
	return summary
}

func (p *PythonExtractor) walk(node *sitter.Node, source []byte, summary *FileSummary, classStack []string) {
	switch node.Type() {
	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			break
		}
		name := nameNode.Content(source)
		summary.Classes = append(summary.Classes, ClassDef{
			Name:      name,
			StartLine: int(node.StartPoint().Row + 1),
			EndLine:   int(node.EndPoint().Row + 1),
			Supers:    p.extractSupers(node, source),
			Signature: p.extractClassSignature(node, source),
		})
		classStack = append(classStack, name)
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				p.walk(body.NamedChild(i), source, summary, classStack)
			}
		}
		return

	case "function_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			break
		}
		owner := ""
		if len(classStack) > 0 {
			owner = classStack[len(classStack)-1]
		}
		summary.Methods = append(summary.Methods, MethodDef{
			Name:      nameNode.Content(source),
			Class:     owner,
			StartLine: int(node.StartPoint().Row + 1),
			EndLine:   int(node.EndPoint().Row + 1),
		})
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.walk(node.NamedChild(i), source, summary, classStack)
	}
}

// extractSupers resolves direct superclass names. Only identifier bases and
// identifier-call bases are recorded; anything symbolic is skipped.
func (p *PythonExtractor) extractSupers(classNode *sitter.Node, source []byte) []string {
	args := classNode.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var supers []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		base := args.NamedChild(i)
		switch base.Type() {
		case "identifier":
			name := base.Content(source)
			if name == "type" || name == "object" {
				continue
			}
			supers = append(supers, name)
		case "call":
			if fn := base.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
				supers = append(supers, fn.Content(source))
			}
		}
	}
	return supers
}

// extractClassSignature collects the class header, class-level assignments,
// and the signature lines of each directly declared method.
func (p *PythonExtractor) extractClassSignature(classNode *sitter.Node, source []byte) string {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return signatureLines(source, int(classNode.StartPoint().Row+1), int(classNode.EndPoint().Row+1))
	}

	var parts []string
	headerEnd := int(body.StartPoint().Row) // line before the body starts
	headerStart := int(classNode.StartPoint().Row + 1)
	if headerEnd < headerStart {
		headerEnd = headerStart
	}
	parts = append(parts, signatureLines(source, headerStart, headerEnd))

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "decorated_definition" {
			if def := stmt.ChildByFieldName("definition"); def != nil {
				stmt = def
			}
		}
		switch stmt.Type() {
		case "function_definition":
			parts = append(parts, p.functionSignature(stmt, source))
		case "expression_statement":
			if stmt.NamedChildCount() > 0 && stmt.NamedChild(0).Type() == "assignment" {
				parts = append(parts, signatureLines(source, int(stmt.StartPoint().Row+1), int(stmt.EndPoint().Row+1)))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func (p *PythonExtractor) functionSignature(funcNode *sitter.Node, source []byte) string {
	start := int(funcNode.StartPoint().Row + 1)
	end := int(funcNode.EndPoint().Row + 1)
	if body := funcNode.ChildByFieldName("body"); body != nil {
		if bodyStart := int(body.StartPoint().Row); bodyStart >= start {
			end = bodyStart
		}
	}
	return signatureLines(source, start, end)
}
