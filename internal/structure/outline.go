package structure

import "github.com/dgallion1/docchunk/internal/doctree"

// BuildOutline nests flat sections into a heading tree. Untitled level-0
// sections become top-level nodes with an empty title.
func BuildOutline(sections []doctree.Section) []*doctree.DocNode {
	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}

	root := &doctree.DocNode{}
	stack := []stackEntry{{node: root, level: 0}}

	for _, s := range sections {
		node := &doctree.DocNode{
			Title:     s.Heading,
			Level:     s.Level,
			PageStart: s.PageStart,
			PageEnd:   s.PageEnd,
		}

		// Pop until the top is a strict ancestor.
		for len(stack) > 1 && stack[len(stack)-1].level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, node)
		for _, ancestor := range stack[1:] {
			ancestor.node.PageEnd = max(ancestor.node.PageEnd, node.PageEnd)
		}

		if s.Level > 0 {
			stack = append(stack, stackEntry{node: node, level: s.Level})
		}
	}
	return root.Children
}
