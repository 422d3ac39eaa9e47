package services

import (
	"slices"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// Every mutation validates all of its preconditions before touching the forest,
// so a returned error always means the store is unchanged.

// AddNode creates a position under parentID (empty for a new root) and appends it
// after the existing children.
func (s *HierarchyStore) AddNode(in position.Input, parentID string) (position.Node, error) {
	if err := in.Validate(); err != nil {
		return position.Node{}, err
	}
	level := 1
	if parentID != "" {
		parent, ok := s.nodes[parentID]
		if !ok {
			return position.Node{}, position.NewNotFound(parentID)
		}
		level = parent.Level + 1
	}
	id, err := s.generateID()
	if err != nil {
		return position.Node{}, err
	}

	n := &position.Node{
		ID:            id,
		Name:          in.Name,
		Title:         in.Title,
		Department:    in.Department,
		Level:         level,
		ParentID:      parentID,
		ChildIDs:      []string{},
		EmployeeCount: in.EmployeeCount,
		Status:        in.Status,
	}
	s.nodes[id] = n
	s.setSiblings(parentID, append(s.siblings(parentID), id))
	return n.Clone(), nil
}

// UpdateNode replaces the patched descriptive fields. Structure is never touched.
func (s *HierarchyStore) UpdateNode(id string, patch position.Patch) (position.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return position.Node{}, position.NewNotFound(id)
	}
	if err := patch.Validate(); err != nil {
		return position.Node{}, err
	}
	patch.Apply(n)
	return n.Clone(), nil
}

// MoveNode re-parents id under newParentID (empty to make it a root), appending it after
// the new parent's existing children and recomputing levels across the moved subtree.
func (s *HierarchyStore) MoveNode(id, newParentID string) (position.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return position.Node{}, position.NewNotFound(id)
	}
	level := 1
	if newParentID != "" {
		parent, ok := s.nodes[newParentID]
		if !ok {
			return position.Node{}, position.NewNotFound(newParentID)
		}
		for cur := newParentID; cur != ""; cur = s.nodes[cur].ParentID {
			if cur == id {
				return position.Node{}, &position.CycleError{ID: id, NewParentID: newParentID}
			}
		}
		level = parent.Level + 1
	}

	s.detach(id)
	n.ParentID = newParentID
	s.setSiblings(newParentID, append(s.siblings(newParentID), id))
	s.relevel(id, level)
	return n.Clone(), nil
}

// RemoveNode deletes id. With cascade the whole subtree goes; otherwise the direct children take
// id's place in its parent's child list, in their original order. The removed ids are returned
// in pre-order and dropped from the expanded set.
func (s *HierarchyStore) RemoveNode(id string, cascade bool) ([]string, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, position.NewNotFound(id)
	}

	var removed []string
	if cascade {
		removed = s.subtree(id)
		s.detach(id)
	} else {
		removed = []string{id}
		siblings := s.siblings(n.ParentID)
		idx := slices.Index(siblings, id)
		children := slices.Clone(n.ChildIDs)
		s.setSiblings(n.ParentID, slices.Replace(siblings, idx, idx+1, children...))
		for _, c := range children {
			s.nodes[c].ParentID = n.ParentID
			s.relevel(c, n.Level)
		}
	}

	for _, r := range removed {
		delete(s.nodes, r)
		s.view.collapse(r)
	}
	return removed, nil
}

func (s *HierarchyStore) detach(id string) {
	parentID := s.nodes[id].ParentID
	siblings := s.siblings(parentID)
	if idx := slices.Index(siblings, id); idx >= 0 {
		s.setSiblings(parentID, slices.Delete(siblings, idx, idx+1))
	}
}
