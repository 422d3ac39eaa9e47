package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s%d", prefix, n), nil
	}
}

func node(id, parentID, name string, children ...string) position.Node {
	if children == nil {
		children = []string{}
	}
	return position.Node{
		ID:            id,
		Name:          name,
		Title:         name + " title",
		Department:    "Dept " + name,
		ParentID:      parentID,
		ChildIDs:      children,
		EmployeeCount: 1,
		Status:        position.StatusActive,
	}
}

// abcdStore builds A(root) -> B, C; B -> D.
func abcdStore(t *testing.T, opts ...Option) *HierarchyStore {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs("N"))}, opts...)
	s, err := NewHierarchyStore([]position.Node{
		node("A", "", "A", "B", "C"),
		node("B", "A", "B", "D"),
		node("C", "A", "C"),
		node("D", "B", "D"),
	}, opts...)
	require.NoError(t, err)
	return s
}

func mustNode(t *testing.T, s *HierarchyStore, id string) position.Node {
	t.Helper()
	n, err := s.Node(id)
	require.NoError(t, err)
	return n
}

func projectedIDs(entries []ProjectionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Node.ID)
	}
	return out
}
