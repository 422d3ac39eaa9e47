package services

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// IDGenerator returns a fresh position id. The store retries on collisions.
type IDGenerator func() (string, error)

type Option func(*HierarchyStore)

func WithIDGenerator(gen IDGenerator) Option {
	return func(s *HierarchyStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithSearchMode(mode SearchMode) Option {
	return func(s *HierarchyStore) {
		s.searchMode = mode.normalized()
	}
}

func WithViewState(vs ViewState) Option {
	return func(s *HierarchyStore) {
		s.view = vs.Clone()
	}
}

// HierarchyStore owns an organizational forest plus the view state used to project it for rendering.
// Nodes live in a flat map keyed by id; ChildIDs and the root list are the only ordering source.
//
// A HierarchyStore is not safe for concurrent use; see HierarchyService.
type HierarchyStore struct {
	nodes      map[string]*position.Node
	roots      []string
	view       ViewState
	newID      IDGenerator
	searchMode SearchMode
}

const maxIDAttempts = 8

func uuidV7Generator() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewHierarchyStore validates the supplied forest and takes a private copy of it.
// Roots keep their relative order from nodes; levels are recomputed from actual depth.
func NewHierarchyStore(nodes []position.Node, opts ...Option) (*HierarchyStore, error) {
	s := &HierarchyStore{
		nodes:      make(map[string]*position.Node, len(nodes)),
		roots:      make([]string, 0, 4),
		view:       NewViewState(),
		newID:      uuidV7Generator,
		searchMode: SearchModeSubstring,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := range nodes {
		n := nodes[i].Clone()
		if n.ID == "" {
			return nil, position.NewValidation("id", fmt.Sprintf("is required (node #%d)", i))
		}
		if _, dup := s.nodes[n.ID]; dup {
			return nil, position.NewValidation("id", fmt.Sprintf("%q is duplicated", n.ID))
		}
		if n.Status == "" {
			n.Status = position.StatusActive
		}
		if !n.Status.Valid() {
			return nil, position.NewValidation("status", fmt.Sprintf("%q is not a valid status for %q", n.Status, n.ID))
		}
		if n.EmployeeCount < 0 {
			return nil, position.NewValidation("employee_count", fmt.Sprintf("must be non-negative for %q", n.ID))
		}
		s.nodes[n.ID] = &n
		if n.ParentID == "" {
			s.roots = append(s.roots, n.ID)
		}
	}

	if err := s.checkStructure(); err != nil {
		return nil, err
	}
	for _, id := range s.roots {
		s.relevel(id, 1)
	}
	return s, nil
}

// LinkChildren fills ChildIDs from ParentID references, in slice order.
// Seed formats that only carry parent links use it before NewHierarchyStore.
func LinkChildren(nodes []position.Node) []position.Node {
	out := make([]position.Node, len(nodes))
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
		out[i].ChildIDs = []string{}
		index[out[i].ID] = i
	}
	for i := range out {
		if out[i].ParentID == "" {
			continue
		}
		if p, ok := index[out[i].ParentID]; ok {
			out[p].ChildIDs = append(out[p].ChildIDs, out[i].ID)
		}
	}
	return out
}

func (s *HierarchyStore) Len() int {
	return len(s.nodes)
}

func (s *HierarchyStore) Node(id string) (position.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return position.Node{}, position.NewNotFound(id)
	}
	return n.Clone(), nil
}

func (s *HierarchyStore) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

func (s *HierarchyStore) RootIDs() []string {
	return slices.Clone(s.roots)
}

func (s *HierarchyStore) Roots() []position.Node {
	out := make([]position.Node, 0, len(s.roots))
	for _, id := range s.roots {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

func (s *HierarchyStore) Children(id string) ([]position.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, position.NewNotFound(id)
	}
	out := make([]position.Node, 0, len(n.ChildIDs))
	for _, c := range n.ChildIDs {
		out = append(out, s.nodes[c].Clone())
	}
	return out, nil
}

// Ancestors returns the chain from the root down to id's parent.
func (s *HierarchyStore) Ancestors(id string) ([]position.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, position.NewNotFound(id)
	}
	var out []position.Node
	for cur := n.ParentID; cur != ""; cur = s.nodes[cur].ParentID {
		out = append(out, s.nodes[cur].Clone())
	}
	slices.Reverse(out)
	return out, nil
}

// Descendants returns id's subtree (excluding id) in pre-order.
func (s *HierarchyStore) Descendants(id string) ([]position.Node, error) {
	if _, ok := s.nodes[id]; !ok {
		return nil, position.NewNotFound(id)
	}
	ids := s.subtree(id)
	out := make([]position.Node, 0, len(ids)-1)
	for _, d := range ids[1:] {
		out = append(out, s.nodes[d].Clone())
	}
	return out, nil
}

// Nodes returns every node in pre-order, roots first.
func (s *HierarchyStore) Nodes() []position.Node {
	out := make([]position.Node, 0, len(s.nodes))
	for _, id := range s.preorder() {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

func (s *HierarchyStore) Clone() *HierarchyStore {
	out := &HierarchyStore{
		nodes:      make(map[string]*position.Node, len(s.nodes)),
		roots:      slices.Clone(s.roots),
		view:       s.view.Clone(),
		newID:      s.newID,
		searchMode: s.searchMode,
	}
	for id, n := range s.nodes {
		c := n.Clone()
		out.nodes[id] = &c
	}
	return out
}

// subtree lists id and all of its descendants in pre-order.
func (s *HierarchyStore) subtree(id string) []string {
	out := make([]string, 0, 8)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children := s.nodes[cur].ChildIDs
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

func (s *HierarchyStore) preorder() []string {
	out := make([]string, 0, len(s.nodes))
	for _, r := range s.roots {
		out = append(out, s.subtree(r)...)
	}
	return out
}

func (s *HierarchyStore) relevel(id string, level int) {
	type frame struct {
		id    string
		level int
	}
	stack := []frame{{id: id, level: level}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.nodes[f.id]
		n.Level = f.level
		for _, c := range n.ChildIDs {
			stack = append(stack, frame{id: c, level: f.level + 1})
		}
	}
}

func (s *HierarchyStore) siblings(parentID string) []string {
	if parentID == "" {
		return s.roots
	}
	return s.nodes[parentID].ChildIDs
}

func (s *HierarchyStore) setSiblings(parentID string, ids []string) {
	if parentID == "" {
		s.roots = ids
		return
	}
	s.nodes[parentID].ChildIDs = ids
}

func (s *HierarchyStore) generateID() (string, error) {
	for range maxIDAttempts {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("generate position id: %w", err)
		}
		if id == "" {
			continue
		}
		if _, taken := s.nodes[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate position id: no unique id after %d attempts", maxIDAttempts)
}
