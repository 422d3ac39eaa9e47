package position

// Events published after a mutation has been applied.

type AddedEvent struct {
	Node Node
}

type UpdatedEvent struct {
	Before Node
	After  Node
}

type MovedEvent struct {
	Node        Node
	OldParentID string
}

// RemovedEvent lists removed ids in pre-order. Without cascade, Reparented holds the
// children that moved up to the removed node's parent.
type RemovedEvent struct {
	ID         string
	RemovedIDs []string
	Reparented []string
	Cascade    bool
}
