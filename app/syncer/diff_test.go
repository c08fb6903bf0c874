package syncer

import (
	"testing"

	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/upstream"
)

func TestDiff_EmptyQueue(t *testing.T) {
	changes := Diff(nil, nil)

	if len(changes) != 0 {
		t.Errorf("Expected no changes for empty queue, got %d", len(changes))
	}
}

func TestDiff_RuleTable(t *testing.T) {
	existing := &database.Item{ID: "item-1"}

	tests := []struct {
		name     string
		node     upstream.Node
		local    *database.Item
		expected Action
	}{
		{
			name:     "published without local item creates",
			node:     upstream.Node{ID: 1, StatusText: upstream.StatusPublished},
			local:    nil,
			expected: ActionCreate,
		},
		{
			name:     "published with local item updates",
			node:     upstream.Node{ID: 1, StatusText: upstream.StatusPublished},
			local:    existing,
			expected: ActionUpdate,
		},
		{
			name:     "unpublished with local item deletes",
			node:     upstream.Node{ID: 1, StatusText: "Draft"},
			local:    existing,
			expected: ActionDelete,
		},
		{
			name:     "unpublished without local item skips",
			node:     upstream.Node{ID: 1, StatusText: "Draft"},
			local:    nil,
			expected: ActionSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := map[int64]*database.Item{}
			if tt.local != nil {
				local[tt.node.ID] = tt.local
			}

			changes := Diff([]upstream.Node{tt.node}, local)

			if len(changes) != 1 {
				t.Fatalf("Expected 1 change, got %d", len(changes))
			}
			if changes[0].Action != tt.expected {
				t.Errorf("Expected action %s, got %s", tt.expected, changes[0].Action)
			}
			if changes[0].Item != tt.local {
				t.Errorf("Expected change to carry the local item")
			}
		})
	}
}

func TestDiff_PriorityFollowsQueueOrder(t *testing.T) {
	nodes := []upstream.Node{
		{ID: 10, StatusText: upstream.StatusPublished},
		{ID: 20, StatusText: "Draft"},
		{ID: 30, StatusText: upstream.StatusPublished},
	}
	local := map[int64]*database.Item{
		20: {ID: "item-20"},
		30: {ID: "item-30"},
	}

	changes := Diff(nodes, local)

	if len(changes) != 3 {
		t.Fatalf("Expected 3 changes, got %d", len(changes))
	}

	expected := []Action{ActionCreate, ActionDelete, ActionUpdate}
	for i, change := range changes {
		if change.Action != expected[i] {
			t.Errorf("Change %d: expected %s, got %s", i, expected[i], change.Action)
		}
		if change.Priority != i {
			t.Errorf("Change %d: expected priority %d, got %d", i, i, change.Priority)
		}
		if change.Node.ID != nodes[i].ID {
			t.Errorf("Change %d: expected node %d, got %d", i, nodes[i].ID, change.Node.ID)
		}
	}
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		action   Action
		expected string
	}{
		{ActionSkip, "skip"},
		{ActionCreate, "create"},
		{ActionUpdate, "update"},
		{ActionDelete, "delete"},
		{Action(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}
