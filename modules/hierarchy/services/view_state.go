package services

import (
	"slices"
	"strings"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// ViewState is the rendering state of one hierarchy screen: which nodes are expanded and
// the active search term. It is a plain value; callers can keep, copy and restore it.
type ViewState struct {
	Expanded   map[string]bool `json:"expanded"`
	SearchTerm string          `json:"search_term"`
}

func NewViewState() ViewState {
	return ViewState{Expanded: make(map[string]bool)}
}

func (v ViewState) IsExpanded(id string) bool {
	return v.Expanded[id]
}

// ExpandedIDs returns the expanded ids sorted, for stable output.
func (v ViewState) ExpandedIDs() []string {
	out := make([]string, 0, len(v.Expanded))
	for id, ok := range v.Expanded {
		if ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (v ViewState) Clone() ViewState {
	out := ViewState{Expanded: make(map[string]bool, len(v.Expanded)), SearchTerm: v.SearchTerm}
	for id, ok := range v.Expanded {
		if ok {
			out.Expanded[id] = true
		}
	}
	return out
}

func (v *ViewState) expand(id string) {
	if v.Expanded == nil {
		v.Expanded = make(map[string]bool)
	}
	v.Expanded[id] = true
}

func (v *ViewState) collapse(id string) {
	delete(v.Expanded, id)
}

// ToggleExpanded flips id's expansion and reports the new state. Unknown ids are accepted:
// view state cannot break the forest.
func (s *HierarchyStore) ToggleExpanded(id string) bool {
	if s.view.IsExpanded(id) {
		s.view.collapse(id)
		return false
	}
	s.view.expand(id)
	return true
}

func (s *HierarchyStore) SetExpanded(id string, expanded bool) {
	if expanded {
		s.view.expand(id)
		return
	}
	s.view.collapse(id)
}

func (s *HierarchyStore) ExpandAll() {
	for id, n := range s.nodes {
		if n.HasChildren() {
			s.view.expand(id)
		}
	}
}

func (s *HierarchyStore) CollapseAll() {
	clear(s.view.Expanded)
}

// ExpandToDepth expands every node whose level is at most depth and collapses the rest.
func (s *HierarchyStore) ExpandToDepth(depth int) {
	s.CollapseAll()
	for id, n := range s.nodes {
		if n.Level <= depth && n.HasChildren() {
			s.view.expand(id)
		}
	}
}

// Reveal expands every ancestor of id so that it is reachable in the projection.
func (s *HierarchyStore) Reveal(id string) error {
	n, ok := s.nodes[id]
	if !ok {
		return position.NewNotFound(id)
	}
	for cur := n.ParentID; cur != ""; cur = s.nodes[cur].ParentID {
		s.view.expand(cur)
	}
	return nil
}

// SetSearchTerm replaces the filter. A blank term clears filtering.
func (s *HierarchyStore) SetSearchTerm(term string) {
	s.view.SearchTerm = term
}

func (s *HierarchyStore) SearchTerm() string {
	return s.view.SearchTerm
}

func (s *HierarchyStore) SearchMode() SearchMode {
	return s.searchMode
}

func (s *HierarchyStore) ViewState() ViewState {
	return s.view.Clone()
}

func (s *HierarchyStore) RestoreViewState(vs ViewState) {
	s.view = vs.Clone()
}

func (s *HierarchyStore) ResetViewState() {
	s.view = NewViewState()
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

