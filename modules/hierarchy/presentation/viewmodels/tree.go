package viewmodels

type HierarchyRow struct {
	ID                   string `json:"id"`
	ParentID             string `json:"parent_id,omitempty"`
	Name                 string `json:"name"`
	Title                string `json:"title,omitempty"`
	Department           string `json:"department,omitempty"`
	Status               string `json:"status"`
	Level                int    `json:"level"`
	Depth                int    `json:"depth"`
	HasChildren          bool   `json:"has_children"`
	Expanded             bool   `json:"expanded"`
	ForcedOpen           bool   `json:"forced_open"`
	Matches              bool   `json:"matches"`
	EmployeeCount        int    `json:"employee_count"`
	SubtreeEmployeeCount int    `json:"subtree_employee_count"`
	Selected             bool   `json:"selected"`
}

type HierarchyTree struct {
	SearchTerm string         `json:"search_term,omitempty"`
	Total      int            `json:"total"`
	Rows       []HierarchyRow `json:"rows"`
}
