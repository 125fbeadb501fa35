package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go. Struct and interface
// types play the role of classes; methods are attached by receiver type name
// and embedded types form the superclass list.
type GoExtractor struct{}

func (g *GoExtractor) Language() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) Extensions() []string {
	return []string{".go"}
}

func (g *GoExtractor) Summarize(root *sitter.Node, source []byte) *FileSummary {
	summary := &FileSummary{}

	// methods first, so class signatures can include same-file methods
	type methodSig struct {
		owner string
		sig   string
	}
	var methodSigs []methodSig

	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		switch node.Type() {
		case "function_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				summary.Methods = append(summary.Methods, MethodDef{
					Name:      nameNode.Content(source),
					StartLine: int(node.StartPoint().Row + 1),
					EndLine:   int(node.EndPoint().Row + 1),
				})
			}
			return
		case "method_declaration":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			owner := g.receiverTypeName(node, source)
			summary.Methods = append(summary.Methods, MethodDef{
				Name:      nameNode.Content(source),
				Class:     owner,
				StartLine: int(node.StartPoint().Row + 1),
				EndLine:   int(node.EndPoint().Row + 1),
			})
			if owner != "" {
				methodSigs = append(methodSigs, methodSig{owner: owner, sig: g.declSignature(node, source)})
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)

	var collectTypes func(node *sitter.Node)
	collectTypes = func(node *sitter.Node) {
		if node.Type() == "type_spec" {
			if def := g.extractTypeDef(node, source); def != nil {
				summary.Classes = append(summary.Classes, *def)
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			collectTypes(node.NamedChild(i))
		}
	}
	collectTypes(root)

	for ci := range summary.Classes {
		var parts []string
		parts = append(parts, summary.Classes[ci].Signature)
		for _, ms := range methodSigs {
			if ms.owner == summary.Classes[ci].Name {
				parts = append(parts, ms.sig)
			}
		}
		summary.Classes[ci].Signature = strings.Join(parts, "\n")
	}

	return summary
}

func (g *GoExtractor) extractTypeDef(node *sitter.Node, source []byte) *ClassDef {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return nil
	}
	if typeNode.Type() != "struct_type" && typeNode.Type() != "interface_type" {
		return nil
	}

	// span over the whole declaration, including "type ("
	declNode := node.Parent()
	if declNode == nil || declNode.Type() != "type_declaration" {
		declNode = node
	}

	return &ClassDef{
		Name:      nameNode.Content(source),
		StartLine: int(declNode.StartPoint().Row + 1),
		EndLine:   int(declNode.EndPoint().Row + 1),
		Supers:    g.extractEmbedded(typeNode, source),
		Signature: declNode.Content(source),
	}
}

// extractEmbedded returns names of embedded struct fields or embedded
// interfaces, stripped of pointer markers and package qualifiers.
func (g *GoExtractor) extractEmbedded(typeNode *sitter.Node, source []byte) []string {
	var supers []string
	add := func(raw string) {
		name := strings.TrimPrefix(strings.TrimSpace(raw), "*")
		if dot := strings.LastIndex(name, "."); dot != -1 {
			name = name[dot+1:]
		}
		if name != "" {
			supers = append(supers, name)
		}
	}

	switch typeNode.Type() {
	case "struct_type":
		var fieldList *sitter.Node
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			if child := typeNode.Child(i); child.Type() == "field_declaration_list" {
				fieldList = child
				break
			}
		}
		if fieldList == nil {
			return nil
		}
		for i := 0; i < int(fieldList.NamedChildCount()); i++ {
			fieldDecl := fieldList.NamedChild(i)
			if fieldDecl.Type() != "field_declaration" {
				continue
			}
			named := false
			for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
				if fieldDecl.NamedChild(j).Type() == "field_identifier" {
					named = true
					break
				}
			}
			if named {
				continue
			}
			if tn := fieldDecl.ChildByFieldName("type"); tn != nil {
				add(tn.Content(source))
			}
		}
	case "interface_type":
		for i := 0; i < int(typeNode.NamedChildCount()); i++ {
			child := typeNode.NamedChild(i)
			switch child.Type() {
			case "type_identifier", "qualified_type":
				add(child.Content(source))
			case "type_elem":
				if child.NamedChildCount() == 1 {
					elem := child.NamedChild(0)
					if elem.Type() == "type_identifier" || elem.Type() == "qualified_type" {
						add(elem.Content(source))
					}
				}
			}
		}
	}
	return supers
}

func (g *GoExtractor) receiverTypeName(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		tn := param.ChildByFieldName("type")
		if tn == nil {
			continue
		}
		name := strings.TrimPrefix(tn.Content(source), "*")
		// drop generic type parameters: Stack[T] -> Stack
		if bracket := strings.Index(name, "["); bracket != -1 {
			name = name[:bracket]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

// declSignature is the declaration text up to the body, the method header.
func (g *GoExtractor) declSignature(node *sitter.Node, source []byte) string {
	if body := node.ChildByFieldName("body"); body != nil {
		return strings.TrimSpace(string(source[node.StartByte():body.StartByte()]))
	}
	return node.Content(source)
}
