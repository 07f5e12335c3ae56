package structured

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/augur/pkg/parser"
)

// functionName resolves the declared name of a function-like node.
// Unnamed function expressions take the name they are bound to, if any.
func functionName(node *sitter.Node, src []byte, lang parser.Language) string {
	switch lang {
	case parser.LangC, parser.LangCPP:
		return innermostDeclarator(node.ChildByFieldName("declarator"), src)
	}

	if name := node.ChildByFieldName("name"); name != nil {
		return parser.GetNodeText(name, src)
	}

	parent := node.Parent()
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator", "public_field_definition", "field_definition":
		if name := parent.ChildByFieldName("name"); name != nil {
			return parser.GetNodeText(name, src)
		}
		if prop := parent.ChildByFieldName("property"); prop != nil {
			return parser.GetNodeText(prop, src)
		}
	case "pair":
		return strings.Trim(parser.GetNodeText(parent.ChildByFieldName("key"), src), `"'`)
	case "assignment_expression":
		left := parent.ChildByFieldName("left")
		if left != nil && left.Type() == "member_expression" {
			return parser.GetNodeText(left.ChildByFieldName("property"), src)
		}
		return parser.GetNodeText(left, src)
	}
	return ""
}

// innermostDeclarator follows a C/C++ declarator chain down to the identifier.
func innermostDeclarator(node *sitter.Node, src []byte) string {
	for node != nil {
		next := node.ChildByFieldName("declarator")
		if next == nil {
			return parser.GetNodeText(node, src)
		}
		node = next
	}
	return ""
}

// className resolves the declared name of a class-like node.
func className(node *sitter.Node, src []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return parser.GetNodeText(name, src)
	}
	// Rust impl blocks are named by the implemented type.
	if typ := node.ChildByFieldName("type"); typ != nil {
		return parser.GetNodeText(typ, src)
	}
	return ""
}

// isClassLike filters class node types that are also used for mere references,
// such as a C struct named in a variable declaration or a Go type alias.
func isClassLike(node *sitter.Node, nodeType string) bool {
	switch nodeType {
	case "struct_specifier", "class_specifier", "union_specifier":
		return node.ChildByFieldName("body") != nil
	case "type_spec":
		typ := node.ChildByFieldName("type")
		if typ == nil {
			return false
		}
		t := typ.Type()
		return t == "struct_type" || t == "interface_type"
	}
	return true
}

// parameterNames returns the declared parameter names in order.
func parameterNames(node *sitter.Node, src []byte, lang parser.Language) []string {
	var list *sitter.Node
	switch lang {
	case parser.LangC, parser.LangCPP:
		decl := node.ChildByFieldName("declarator")
		for decl != nil && decl.Type() != "function_declarator" {
			decl = decl.ChildByFieldName("declarator")
		}
		if decl != nil {
			list = decl.ChildByFieldName("parameters")
		}
	default:
		list = node.ChildByFieldName("parameters")
		if list == nil {
			// Single-parameter arrow functions: x => x + 1
			if single := node.ChildByFieldName("parameter"); single != nil {
				return []string{parser.GetNodeText(single, src)}
			}
		}
	}
	if list == nil {
		return nil
	}

	var names []string
	for i := range int(list.NamedChildCount()) {
		param := list.NamedChild(i)
		if commentTypes[param.Type()] {
			continue
		}
		names = append(names, paramNames(param, src)...)
	}
	return names
}

// paramNames extracts the names bound by one parameter node. Grammars that
// declare several names per node (Go's "x, y int") return all of them.
func paramNames(param *sitter.Node, src []byte) []string {
	switch param.Type() {
	case "identifier", "shorthand_property_identifier_pattern", "variable_name", "self", "self_parameter":
		return []string{parser.GetNodeText(param, src)}
	}

	var names []string
	for i := range int(param.ChildCount()) {
		if param.FieldNameForChild(i) == "name" {
			names = append(names, leafName(param.Child(i), src))
		}
	}
	if len(names) > 0 {
		return names
	}

	for _, field := range []string{"pattern", "declarator", "left"} {
		if child := param.ChildByFieldName(field); child != nil {
			return []string{leafName(child, src)}
		}
	}

	if id := firstIdentifier(param); id != nil {
		return []string{parser.GetNodeText(id, src)}
	}
	return nil
}

// leafName unwraps declarators and patterns to the bound identifier.
func leafName(node *sitter.Node, src []byte) string {
	for node != nil {
		if identifierTypes[node.Type()] || node.ChildCount() == 0 {
			return parser.GetNodeText(node, src)
		}
		if next := node.ChildByFieldName("declarator"); next != nil {
			node = next
			continue
		}
		if id := firstIdentifier(node); id != nil {
			return parser.GetNodeText(id, src)
		}
		return parser.GetNodeText(node, src)
	}
	return ""
}

func firstIdentifier(node *sitter.Node) *sitter.Node {
	var found *sitter.Node
	parser.WalkTyped(node, func(n *sitter.Node, nodeType string) bool {
		if found != nil {
			return false
		}
		if identifierTypes[nodeType] {
			found = n
			return false
		}
		return true
	})
	return found
}
