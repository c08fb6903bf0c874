package syncer

import (
	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/upstream"
)

// Action is the operation a single upstream node translates into.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one planned operation of a sync pass. Priority is the node's
// position in the upstream queue, so queue order maps straight onto item
// ordering within the tag.
type Change struct {
	Action   Action
	Node     upstream.Node
	Item     *database.Item
	Priority int
}

// Diff plans the change-set that reconciles the locally stored items with the
// upstream queue. localByNode indexes existing items by their upstream node
// id; nodes without a local counterpart are missing from the map. The result
// has exactly one entry per node, in queue order.
func Diff(nodes []upstream.Node, localByNode map[int64]*database.Item) []Change {
	changes := make([]Change, 0, len(nodes))
	for i, node := range nodes {
		change := Change{Node: node, Item: localByNode[node.ID], Priority: i}
		switch {
		case node.Published() && change.Item == nil:
			change.Action = ActionCreate
		case node.Published():
			change.Action = ActionUpdate
		case change.Item != nil:
			change.Action = ActionDelete
		default:
			change.Action = ActionSkip
		}
		changes = append(changes, change)
	}
	return changes
}
