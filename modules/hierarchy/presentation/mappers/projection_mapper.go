package mappers

import (
	"github.com/iota-uz/orgchart/modules/hierarchy/presentation/viewmodels"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

// ProjectionToTree maps projection rows 1:1 into the view model, keeping their order.
// Matches is only set while a search term is active.
func ProjectionToTree(entries []services.ProjectionEntry, vs services.ViewState, selectedID string) *viewmodels.HierarchyTree {
	rows := make([]viewmodels.HierarchyRow, 0, len(entries))
	for _, e := range entries {
		n := e.Node
		rows = append(rows, viewmodels.HierarchyRow{
			ID:                   n.ID,
			ParentID:             n.ParentID,
			Name:                 n.Name,
			Title:                n.Title,
			Department:           n.Department,
			Status:               string(n.Status),
			Level:                n.Level,
			Depth:                e.Depth,
			HasChildren:          e.HasChildren,
			Expanded:             e.IsExpanded,
			ForcedOpen:           e.ForcedOpen,
			Matches:              e.MatchesSearch,
			EmployeeCount:        n.EmployeeCount,
			SubtreeEmployeeCount: e.SubtreeEmployeeCount,
			Selected:             selectedID != "" && selectedID == n.ID,
		})
	}
	return &viewmodels.HierarchyTree{
		SearchTerm: vs.SearchTerm,
		Total:      len(rows),
		Rows:       rows,
	}
}
