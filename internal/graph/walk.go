package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Walk visits every node under root in pre-order using an explicit stack, so
// pathologically nested input cannot exhaust the goroutine stack. visit
// returning false prunes the subtree below the node.
func Walk(root *tree_sitter.Node, visit func(n *tree_sitter.Node) bool) {
	if root == nil {
		return
	}
	stack := []*tree_sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(n) {
			continue
		}

		// Push children in reverse so the first child is visited next.
		count := n.ChildCount()
		for i := count; i > 0; i-- {
			child := n.Child(i - 1)
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// nestedFrame pairs a node with the structural nesting level it is visited at.
type nestedFrame struct {
	node  *tree_sitter.Node
	depth int
}

// WalkNested is Walk with nesting-level tracking: depth increments when
// descending into nodes whose kind is in the nesting set, and unwinds on
// sibling subtrees because depth travels with each stack frame.
func WalkNested(root *tree_sitter.Node, nesting map[string]bool, visit func(n *tree_sitter.Node, depth int)) {
	if root == nil {
		return
	}
	stack := []nestedFrame{{node: root, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(f.node, f.depth)

		childDepth := f.depth
		if nesting[f.node.Kind()] {
			childDepth++
		}

		count := f.node.ChildCount()
		for i := count; i > 0; i-- {
			child := f.node.Child(i - 1)
			if child != nil {
				stack = append(stack, nestedFrame{node: child, depth: childDepth})
			}
		}
	}
}
