package structured

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/augur/pkg/parser"
)

// Cyclomatic computes McCabe complexity for the subtree rooted at node:
// 1, plus one per branch, plus one per boolean operator (N-1 for a chain of
// N operands), plus one per resource-scoping block.
func Cyclomatic(node *sitter.Node, table *declTable) int {
	count := 1
	parser.WalkTyped(node, func(n *sitter.Node, nodeType string) bool {
		if !n.IsNamed() {
			return true
		}
		switch {
		case table.branches[nodeType] && !isDefaultLabel(n), table.resources[nodeType]:
			count++
		case table.booleans[nodeType] && isBooleanOperator(n):
			count++
		}
		return true
	})
	return count
}

// isBooleanOperator reports whether a binary node joins operands with a
// short-circuit operator.
func isBooleanOperator(node *sitter.Node) bool {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if !child.IsNamed() && booleanOperators[child.Type()] {
			return true
		}
	}
	return false
}

// isDefaultLabel reports whether a switch label is the default arm. Some
// grammars use one node type for both case and default labels.
func isDefaultLabel(node *sitter.Node) bool {
	return node.ChildCount() > 0 && node.Child(0).Type() == "default"
}
