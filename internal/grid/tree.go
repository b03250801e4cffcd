package grid

import (
	"slices"

	"github.com/JonMunkholm/dataviewer/internal/axis"
)

// TreeNode is one entry of the column selector. Leaf nodes carry the original
// column position in Value; group nodes have Value -1 and children.
type TreeNode struct {
	Label    any        `json:"label"`
	Text     string     `json:"text"`
	Value    int        `json:"value"`
	Selected bool       `json:"selected"`
	Children []TreeNode `json:"children"`
}

// ColumnTree builds the column selector over every dataset column, marking
// the columns of the current projection as selected.
func (b *Builder) ColumnTree() []TreeNode {
	cols := b.v.Dataset().Columns()
	visible := b.v.ColumnPositions()
	selected := func(pos int) bool { return slices.Contains(visible, pos) }
	return b.treeLevel(cols, 0, 0, cols.Len(), selected)
}

func (b *Builder) treeLevel(cols *axis.Axis, level, start, end int, selected func(int) bool) []TreeNode {
	nodes := []TreeNode{}
	if level == cols.NLevels()-1 {
		for pos := start; pos < end; pos++ {
			label := cols.Label(pos, level)
			nodes = append(nodes, TreeNode{
				Label:    label,
				Text:     b.formatter.Label(label),
				Value:    pos,
				Selected: selected(pos),
				Children: []TreeNode{},
			})
		}
		return nodes
	}

	for _, s := range cols.Spans(level) {
		if s.End() <= start || s.Start >= end {
			continue
		}
		children := b.treeLevel(cols, level+1, max(s.Start, start), min(s.End(), end), selected)
		all := true
		for _, c := range children {
			all = all && c.Selected
		}
		nodes = append(nodes, TreeNode{
			Label:    s.Label(),
			Text:     b.formatter.Label(s.Label()),
			Value:    -1,
			Selected: all,
			Children: children,
		})
	}
	return nodes
}
