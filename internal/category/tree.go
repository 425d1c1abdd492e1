// Package category indexes self-referencing category rows (course and job
// categories) by id and renders them as bounded-depth trees.
package category

import (
	"sort"

	"ongon.org/internal/apperr"
)

// DefaultMaxDepth bounds both rendering and the depth of new categories.
const DefaultMaxDepth = 8

// Node is a flat category row.
type Node struct {
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parent_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// View is a rendered node with its children.
type View struct {
	Node
	Children []View `json:"children"`
}

// Tree is an immutable index over a set of nodes.
type Tree struct {
	byID     map[int64]Node
	children map[int64][]int64
	roots    []int64
}

// New indexes nodes. Nodes whose parent is absent become roots.
func New(nodes []Node) *Tree {
	t := &Tree{
		byID:     make(map[int64]Node, len(nodes)),
		children: make(map[int64][]int64),
	}
	for _, n := range nodes {
		t.byID[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID != nil {
			if _, ok := t.byID[*n.ParentID]; ok && *n.ParentID != n.ID {
				t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
				continue
			}
		}
		t.roots = append(t.roots, n.ID)
	}
	t.sortIDs(t.roots)
	for _, ids := range t.children {
		t.sortIDs(ids)
	}
	return t
}

func (t *Tree) sortIDs(ids []int64) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.byID[ids[i]], t.byID[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Get returns the node with id.
func (t *Tree) Get(id int64) (Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Len is the number of indexed nodes.
func (t *Tree) Len() int { return len(t.byID) }

// Children returns the direct children of id.
func (t *Tree) Children(id int64) []Node {
	out := make([]Node, 0, len(t.children[id]))
	for _, c := range t.children[id] {
		out = append(out, t.byID[c])
	}
	return out
}

// Depth is the number of ancestors of id. A parent chain that loops or
// exceeds maxDepth is reported as a validation error.
func (t *Tree) Depth(id int64, maxDepth int) (int, error) {
	seen := map[int64]struct{}{}
	depth := 0
	cur, ok := t.byID[id]
	if !ok {
		return 0, apperr.NotFound("category")
	}
	for cur.ParentID != nil {
		if _, loop := seen[cur.ID]; loop {
			return 0, apperr.Validation("category %d has a cyclic parent chain", id)
		}
		seen[cur.ID] = struct{}{}
		parent, ok := t.byID[*cur.ParentID]
		if !ok {
			break
		}
		depth++
		if depth > maxDepth {
			return 0, apperr.Validation("category nesting exceeds %d levels", maxDepth)
		}
		cur = parent
	}
	return depth, nil
}

// CheckParent validates attaching a new category under parentID.
func (t *Tree) CheckParent(parentID *int64, maxDepth int) error {
	if parentID == nil {
		return nil
	}
	if _, ok := t.byID[*parentID]; !ok {
		return apperr.NotFound("parent category")
	}
	depth, err := t.Depth(*parentID, maxDepth)
	if err != nil {
		return err
	}
	if depth+1 >= maxDepth {
		return apperr.Validation("category nesting exceeds %d levels", maxDepth)
	}
	return nil
}

// Render returns the forest from the roots down to maxDepth levels. Nodes
// are emitted at most once, so malformed cycles terminate.
func (t *Tree) Render(maxDepth int) []View {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := make(map[int64]struct{}, len(t.byID))
	out := make([]View, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.render(id, 1, maxDepth, visited))
	}
	return out
}

func (t *Tree) render(id int64, level, maxDepth int, visited map[int64]struct{}) View {
	visited[id] = struct{}{}
	v := View{Node: t.byID[id], Children: []View{}}
	if level >= maxDepth {
		return v
	}
	for _, c := range t.children[id] {
		if _, ok := visited[c]; ok {
			continue
		}
		v.Children = append(v.Children, t.render(c, level+1, maxDepth, visited))
	}
	return v
}
