package services

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

type SearchMode string

const (
	// SearchModeSubstring matches a case-insensitive substring of name, title or department.
	SearchModeSubstring SearchMode = "substring"
	// SearchModeFuzzy matches when the term's characters appear in order (e.g. "swe" ~ "Software Engineer").
	SearchModeFuzzy SearchMode = "fuzzy"
)

func ParseSearchMode(raw string) (SearchMode, bool) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SearchModeSubstring:
		return SearchModeSubstring, true
	case SearchModeFuzzy:
		return SearchModeFuzzy, true
	default:
		return "", false
	}
}

func (m SearchMode) normalized() SearchMode {
	if mode, ok := ParseSearchMode(string(m)); ok {
		return mode
	}
	return SearchModeSubstring
}

// ProjectionEntry is one row handed to a renderer.
type ProjectionEntry struct {
	Node          position.Node `json:"node"`
	Depth         int           `json:"depth"`
	HasChildren   bool          `json:"has_children"`
	IsExpanded    bool          `json:"is_expanded"`
	MatchesSearch bool          `json:"matches_search"`
	// ForcedOpen marks nodes rendered open only because a search match lies below them.
	ForcedOpen           bool `json:"forced_open"`
	SubtreeEmployeeCount int  `json:"subtree_employee_count"`
}

// VisibleProjection projects the forest with the store's own view state.
func (s *HierarchyStore) VisibleProjection() []ProjectionEntry {
	return s.Project(s.view)
}

// Project walks the forest depth-first (roots in order, then ChildIDs order) and returns the rows
// visible under vs. Roots have depth 0.
//
// Without a search term a node's children are walked only when it is expanded. With a term, nodes
// that neither match nor have a matching descendant are dropped, and any node with a kept child is
// rendered open regardless of vs.Expanded; vs itself is never modified.
func (s *HierarchyStore) Project(vs ViewState) []ProjectionEntry {
	term := normalizeTerm(vs.SearchTerm)
	totals := s.EmployeeRollup()

	var matches, keep map[string]bool
	if term != "" {
		matches = make(map[string]bool, len(s.nodes))
		keep = make(map[string]bool, len(s.nodes))
		order := s.preorder()
		for i := len(order) - 1; i >= 0; i-- {
			n := s.nodes[order[i]]
			m := s.matches(n, term)
			matches[n.ID] = m
			k := m
			for _, c := range n.ChildIDs {
				if keep[c] {
					k = true
					break
				}
			}
			keep[n.ID] = k
		}
	}

	out := make([]ProjectionEntry, 0, len(s.nodes))
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if term != "" && !keep[id] {
			return
		}
		n := s.nodes[id]
		forced := false
		if term != "" {
			for _, c := range n.ChildIDs {
				if keep[c] {
					forced = true
					break
				}
			}
		}
		expanded := vs.IsExpanded(id)
		open := expanded || forced
		out = append(out, ProjectionEntry{
			Node:                 n.Clone(),
			Depth:                depth,
			HasChildren:          n.HasChildren(),
			IsExpanded:           open,
			MatchesSearch:        matches[id],
			ForcedOpen:           forced && !expanded,
			SubtreeEmployeeCount: totals[id],
		})
		if !open {
			return
		}
		for _, c := range n.ChildIDs {
			walk(c, depth+1)
		}
	}
	for _, r := range s.roots {
		walk(r, 0)
	}
	return out
}

func (s *HierarchyStore) matches(n *position.Node, term string) bool {
	for _, field := range [...]string{n.Name, n.Title, n.Department} {
		if field == "" {
			continue
		}
		switch s.searchMode {
		case SearchModeFuzzy:
			if fuzzy.MatchNormalizedFold(term, field) {
				return true
			}
		default:
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
	}
	return false
}
