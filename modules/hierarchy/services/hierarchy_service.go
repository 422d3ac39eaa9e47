package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/pkg/eventbus"
)

// HierarchyService shares one HierarchyStore between concurrent callers (HTTP handlers)
// and adds logging, metrics and mutation events around every change.
type HierarchyService struct {
	mu        sync.RWMutex
	store     *HierarchyStore
	log       logrus.FieldLogger
	publisher eventbus.EventBus
}

type ServiceOption func(*HierarchyService)

// WithPublisher sends position events to bus. Events are published after the lock is released,
// so handlers may call back into the service.
func WithPublisher(bus eventbus.EventBus) ServiceOption {
	return func(s *HierarchyService) {
		s.publisher = bus
	}
}

func NewHierarchyService(store *HierarchyStore, log logrus.FieldLogger, opts ...ServiceOption) *HierarchyService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	hierarchyPositions.Set(float64(store.Len()))
	s := &HierarchyService{store: store, log: log.WithField("component", "hierarchy")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HierarchyService) AddNode(in position.Input, parentID string) (position.Node, error) {
	s.mu.Lock()
	n, err := s.store.AddNode(in, parentID)
	s.logMutation("add", logrus.Fields{"id": n.ID, "parent_id": parentID}, err)
	s.mu.Unlock()
	if err == nil {
		s.publish(&position.AddedEvent{Node: n})
	}
	return n, err
}

func (s *HierarchyService) UpdateNode(id string, patch position.Patch) (position.Node, error) {
	s.mu.Lock()
	before, _ := s.store.Node(id)
	n, err := s.store.UpdateNode(id, patch)
	s.logMutation("update", logrus.Fields{"id": id}, err)
	s.mu.Unlock()
	if err == nil {
		s.publish(&position.UpdatedEvent{Before: before, After: n})
	}
	return n, err
}

// PatchNode applies an RFC 6902 document to id's mutable fields. Reading the node and updating it
// happen under one lock, so concurrent updates cannot interleave with the patch. A document that
// changes nothing (only test ops, or values equal to the current ones) leaves the store alone and
// publishes no event.
func (s *HierarchyService) PatchNode(id string, raw []byte) (position.Node, error) {
	s.mu.Lock()
	before, err := s.store.Node(id)
	n := before
	changed := false
	if err == nil {
		var patch position.Patch
		if patch, err = position.ParseJSONPatch(before, raw); err == nil && !patch.IsEmpty() {
			n, err = s.store.UpdateNode(id, patch)
			changed = err == nil
		}
	}
	s.logMutation("update", logrus.Fields{"id": id, "json_patch": true, "changed": changed}, err)
	s.mu.Unlock()
	if changed {
		s.publish(&position.UpdatedEvent{Before: before, After: n})
	}
	return n, err
}

func (s *HierarchyService) MoveNode(id, newParentID string) (position.Node, error) {
	s.mu.Lock()
	before, _ := s.store.Node(id)
	n, err := s.store.MoveNode(id, newParentID)
	s.logMutation("move", logrus.Fields{"id": id, "parent_id": newParentID}, err)
	s.mu.Unlock()
	if err == nil {
		s.publish(&position.MovedEvent{Node: n, OldParentID: before.ParentID})
	}
	return n, err
}

func (s *HierarchyService) RemoveNode(id string, cascade bool) ([]string, error) {
	s.mu.Lock()
	before, _ := s.store.Node(id)
	removed, err := s.store.RemoveNode(id, cascade)
	s.logMutation("remove", logrus.Fields{"id": id, "cascade": cascade, "removed": len(removed)}, err)
	s.mu.Unlock()
	if err == nil {
		ev := &position.RemovedEvent{ID: id, RemovedIDs: removed, Cascade: cascade, Reparented: []string{}}
		if !cascade {
			ev.Reparented = before.ChildIDs
		}
		s.publish(ev)
	}
	return removed, err
}

func (s *HierarchyService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *HierarchyService) ToggleExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ToggleExpanded(id)
}

func (s *HierarchyService) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetSearchTerm(term)
}

func (s *HierarchyService) ExpandAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ExpandAll()
}

func (s *HierarchyService) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.CollapseAll()
}

func (s *HierarchyService) Reveal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Reveal(id)
}

func (s *HierarchyService) ViewState() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ViewState()
}

func (s *HierarchyService) VisibleProjection() []ProjectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.store.VisibleProjection()
	hierarchyProjectionRows.Observe(float64(len(rows)))
	return rows
}

// Project renders the shared forest with a caller-owned view state, leaving the store's own untouched.
func (s *HierarchyService) Project(vs ViewState) []ProjectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.store.Project(vs)
	hierarchyProjectionRows.Observe(float64(len(rows)))
	return rows
}

// AllExpanded returns a view state with every parent node expanded and the given search term.
func (s *HierarchyService) AllExpanded(term string) ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs := NewViewState()
	vs.SearchTerm = term
	for id, n := range s.store.nodes {
		if n.HasChildren() {
			vs.Expanded[id] = true
		}
	}
	return vs
}

func (s *HierarchyService) Node(id string) (position.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Node(id)
}

func (s *HierarchyService) Ancestors(id string) ([]position.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Ancestors(id)
}

func (s *HierarchyService) Nodes() []position.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Nodes()
}

func (s *HierarchyService) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Stats()
}

func (s *HierarchyService) SubtreeEmployeeCount(id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SubtreeEmployeeCount(id)
}

// Snapshot returns an independent copy of the store for batch work outside the lock.
func (s *HierarchyService) Snapshot() *HierarchyStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Clone()
}

func (s *HierarchyService) logMutation(op string, fields logrus.Fields, err error) {
	recordMutation(op, err)
	entry := s.log.WithFields(fields).WithField("op", op)
	if err != nil {
		entry.WithError(err).Warn("hierarchy mutation rejected")
		return
	}
	hierarchyPositions.Set(float64(s.store.Len()))
	entry.Info("hierarchy mutation applied")
}
