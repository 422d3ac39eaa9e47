package services

import (
	"fmt"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// CheckInvariants verifies the forest invariants the store maintains: parent links resolve,
// ChildIDs are exactly the inverse of ParentID, every node is reachable from a root (no cycles),
// and Level matches depth.
func (s *HierarchyStore) CheckInvariants() error {
	if err := s.checkStructure(); err != nil {
		return err
	}
	for _, r := range s.roots {
		type frame struct {
			id    string
			level int
		}
		stack := []frame{{id: r, level: 1}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := s.nodes[f.id]
			if n.Level != f.level {
				return position.NewValidation("level", fmt.Sprintf("%q has level %d, expected %d", n.ID, n.Level, f.level))
			}
			for _, c := range n.ChildIDs {
				stack = append(stack, frame{id: c, level: f.level + 1})
			}
		}
	}
	return nil
}

func (s *HierarchyStore) checkStructure() error {
	seenRoots := make(map[string]struct{}, len(s.roots))
	for _, r := range s.roots {
		n, ok := s.nodes[r]
		if !ok {
			return fmt.Errorf("root list: %w", position.NewNotFound(r))
		}
		if n.ParentID != "" {
			return position.NewValidation("parent_id", fmt.Sprintf("root %q has parent %q", r, n.ParentID))
		}
		if _, dup := seenRoots[r]; dup {
			return position.NewValidation("id", fmt.Sprintf("root %q listed twice", r))
		}
		seenRoots[r] = struct{}{}
	}

	childCount := make(map[string]int, len(s.nodes))
	for id, n := range s.nodes {
		if n.ParentID == "" {
			if _, ok := seenRoots[id]; !ok {
				return position.NewValidation("parent_id", fmt.Sprintf("%q has no parent but is not a root", id))
			}
			continue
		}
		if _, ok := s.nodes[n.ParentID]; !ok {
			return fmt.Errorf("parent of %q: %w", id, position.NewNotFound(n.ParentID))
		}
		childCount[n.ParentID]++
	}

	for id, n := range s.nodes {
		seen := make(map[string]struct{}, len(n.ChildIDs))
		for _, c := range n.ChildIDs {
			child, ok := s.nodes[c]
			if !ok {
				return fmt.Errorf("child of %q: %w", id, position.NewNotFound(c))
			}
			if child.ParentID != id {
				return position.NewValidation("child_ids", fmt.Sprintf("%q lists %q whose parent is %q", id, c, child.ParentID))
			}
			if _, dup := seen[c]; dup {
				return position.NewValidation("child_ids", fmt.Sprintf("%q lists %q twice", id, c))
			}
			seen[c] = struct{}{}
		}
		if len(n.ChildIDs) != childCount[id] {
			return position.NewValidation("child_ids", fmt.Sprintf("%q lists %d children, %d nodes report to it", id, len(n.ChildIDs), childCount[id]))
		}
	}

	// With consistent links, a node unreachable from every root sits on a cycle.
	reached := 0
	for _, r := range s.roots {
		reached += len(s.subtree(r))
	}
	if reached != len(s.nodes) {
		visited := make(map[string]struct{}, reached)
		for _, id := range s.preorder() {
			visited[id] = struct{}{}
		}
		for id, n := range s.nodes {
			if _, ok := visited[id]; !ok {
				return &position.CycleError{ID: id, NewParentID: n.ParentID}
			}
		}
	}
	return nil
}
