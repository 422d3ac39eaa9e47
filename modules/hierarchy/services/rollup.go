package services

import (
	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// EmployeeRollup returns, for every node, its own employee count plus that of its whole subtree.
func (s *HierarchyStore) EmployeeRollup() map[string]int {
	totals := make(map[string]int, len(s.nodes))
	order := s.preorder()
	for i := len(order) - 1; i >= 0; i-- {
		n := s.nodes[order[i]]
		total := n.EmployeeCount
		for _, c := range n.ChildIDs {
			total += totals[c]
		}
		totals[n.ID] = total
	}
	return totals
}

func (s *HierarchyStore) SubtreeEmployeeCount(id string) (int, error) {
	if _, ok := s.nodes[id]; !ok {
		return 0, position.NewNotFound(id)
	}
	total := 0
	for _, d := range s.subtree(id) {
		total += s.nodes[d].EmployeeCount
	}
	return total, nil
}

// Stats feeds the dashboard's summary cards.
type Stats struct {
	Positions      int            `json:"positions"`
	Active         int            `json:"active"`
	Inactive       int            `json:"inactive"`
	Roots          int            `json:"roots"`
	MaxDepth       int            `json:"max_depth"`
	TotalEmployees int            `json:"total_employees"`
	ByDepartment   map[string]int `json:"by_department"`
}

func (s *HierarchyStore) Stats() Stats {
	st := Stats{
		Positions:    len(s.nodes),
		Roots:        len(s.roots),
		ByDepartment: make(map[string]int),
	}
	for _, n := range s.nodes {
		switch n.Status {
		case position.StatusInactive:
			st.Inactive++
		default:
			st.Active++
		}
		if n.Level > st.MaxDepth {
			st.MaxDepth = n.Level
		}
		st.TotalEmployees += n.EmployeeCount
		dept := n.Department
		if dept == "" {
			dept = "Unassigned"
		}
		st.ByDepartment[dept] += n.EmployeeCount
	}
	return st
}
