package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// node is an evaluable expression tree element.
type node interface {
	eval(s Scope) (any, error)
	String() string
}

type literalNode struct {
	value any
}

func (n *literalNode) String() string {
	if s, ok := n.value.(string); ok {
		return strconv.Quote(s)
	}
	if n.value == nil {
		return "null"
	}
	return Format(n.value)
}

type identNode struct {
	name string
}

func (n *identNode) String() string { return n.name }

type fieldNode struct {
	object node
	field  string
}

func (n *fieldNode) String() string { return n.object.String() + "." + n.field }

type indexNode struct {
	object node
	index  node
}

func (n *indexNode) String() string {
	return fmt.Sprintf("%s[%s]", n.object.String(), n.index.String())
}

type unaryNode struct {
	op      string
	operand node
}

func (n *unaryNode) String() string {
	if n.op == "not" {
		return "(not " + n.operand.String() + ")"
	}
	return "(" + n.op + n.operand.String() + ")"
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.left.String(), n.op, n.right.String())
}

type callNode struct {
	name string
	args []node
}

func (n *callNode) String() string {
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.name, strings.Join(args, ", "))
}

// walk visits n and all of its children depth first.
func walk(n node, fn func(node)) {
	fn(n)
	switch t := n.(type) {
	case *fieldNode:
		walk(t.object, fn)
	case *indexNode:
		walk(t.object, fn)
		walk(t.index, fn)
	case *unaryNode:
		walk(t.operand, fn)
	case *binaryNode:
		walk(t.left, fn)
		walk(t.right, fn)
	case *callNode:
		for _, a := range t.args {
			walk(a, fn)
		}
	}
}
