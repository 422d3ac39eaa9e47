package position

import "slices"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Node is one position in the organizational forest. ParentID is empty for roots.
// Level is derived from the node's depth (1 = root) and is recomputed by the store.
type Node struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Title         string   `json:"title" yaml:"title"`
	Department    string   `json:"department" yaml:"department"`
	Level         int      `json:"level" yaml:"level"`
	ParentID      string   `json:"parent_id" yaml:"parent_id"`
	ChildIDs      []string `json:"child_ids" yaml:"child_ids"`
	EmployeeCount int      `json:"employee_count" yaml:"employee_count"`
	Status        Status   `json:"status" yaml:"status"`
}

func (n Node) IsRoot() bool {
	return n.ParentID == ""
}

func (n Node) HasChildren() bool {
	return len(n.ChildIDs) > 0
}

// Clone returns a copy that shares no slice memory with n.
func (n Node) Clone() Node {
	out := n
	out.ChildIDs = slices.Clone(n.ChildIDs)
	if out.ChildIDs == nil {
		out.ChildIDs = []string{}
	}
	return out
}
