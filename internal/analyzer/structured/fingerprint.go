package structured

import (
	"encoding/hex"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"

	"github.com/panbanda/augur/pkg/parser"
)

// Fingerprint hashes the normalized S-expression of node with BLAKE3-256.
// Identifiers become positional placeholders in first-seen order, literals
// collapse to their node type, and comments are dropped. Operators and
// keywords are kept, so differing control flow or arithmetic never collide.
func Fingerprint(node *sitter.Node, source []byte) string {
	sum := blake3.Sum256([]byte(Normalize(node, source)))
	return hex.EncodeToString(sum[:])
}

// Normalize returns the canonical serialization that Fingerprint hashes.
func Normalize(node *sitter.Node, source []byte) string {
	n := normalizer{source: source, names: make(map[string]int)}
	n.write(node, false)
	return n.buf.String()
}

type normalizer struct {
	source []byte
	names  map[string]int
	buf    strings.Builder
}

func (n *normalizer) write(node *sitter.Node, member bool) {
	if node == nil {
		return
	}
	nodeType := node.Type()
	if commentTypes[nodeType] {
		return
	}

	if !node.IsNamed() {
		n.buf.WriteByte(' ')
		n.buf.WriteString(nodeType)
		return
	}

	switch {
	case literalTypes[nodeType]:
		n.buf.WriteString(" <")
		n.buf.WriteString(nodeType)
		n.buf.WriteByte('>')
		return
	case identifierTypes[nodeType] && !member:
		n.buf.WriteString(" $")
		n.buf.WriteString(strconv.Itoa(n.placeholder(parser.GetNodeText(node, n.source))))
		return
	case node.ChildCount() == 0:
		// Member names, type names and other named leaves keep their text.
		n.buf.WriteString(" ")
		n.buf.WriteString(nodeType)
		n.buf.WriteByte('=')
		n.buf.WriteString(parser.GetNodeText(node, n.source))
		return
	}

	n.buf.WriteString(" (")
	n.buf.WriteString(nodeType)
	for i := range int(node.ChildCount()) {
		n.write(node.Child(i), memberFields[node.FieldNameForChild(i)])
	}
	n.buf.WriteByte(')')
}

func (n *normalizer) placeholder(name string) int {
	if idx, ok := n.names[name]; ok {
		return idx
	}
	idx := len(n.names)
	n.names[name] = idx
	return idx
}
