package services

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
)

// pickID draws an existing id, or occasionally one that does not exist.
func pickID(t *rapid.T, s *HierarchyStore, label string) string {
	ids := make([]string, 0, s.Len()+2)
	for _, n := range s.Nodes() {
		ids = append(ids, n.ID)
	}
	ids = append(ids, "", "ghost")
	return rapid.SampledFrom(ids).Draw(t, label)
}

func TestHierarchyStore_InvariantsHoldUnderRandomCommands(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, err := NewHierarchyStore(nil, WithIDGenerator(sequentialIDs("P")))
		require.NoError(t, err)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for range steps {
			before := s.Clone()
			var opErr error

			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0, 1:
				parent := pickID(t, s, "parent")
				_, opErr = s.AddNode(position.Input{
					Name:          rapid.StringMatching(`[A-Za-z]{1,8}`).Draw(t, "name"),
					EmployeeCount: rapid.IntRange(0, 20).Draw(t, "count"),
				}, parent)
			case 2:
				id := pickID(t, s, "move_id")
				newParent := pickID(t, s, "move_parent")
				_, opErr = s.MoveNode(id, newParent)
				if opErr == nil {
					n := mustNodeRapid(t, s, id)
					require.Equal(t, newParent, n.ParentID)
					if newParent == "" {
						require.Equal(t, id, s.RootIDs()[len(s.RootIDs())-1])
					}
				}
			case 3:
				id := pickID(t, s, "remove_id")
				cascade := rapid.Bool().Draw(t, "cascade")
				var removed []string
				removed, opErr = s.RemoveNode(id, cascade)
				if opErr == nil {
					for _, r := range removed {
						require.False(t, s.Has(r))
						require.False(t, s.ViewState().IsExpanded(r))
					}
					require.Equal(t, before.Len()-len(removed), s.Len())
				}
			case 4:
				s.ToggleExpanded(pickID(t, s, "toggle_id"))
			}

			if opErr != nil {
				require.Equal(t, before.Nodes(), s.Nodes(), "failed op must not mutate the forest")
				require.Equal(t, before.RootIDs(), s.RootIDs())
			}
			require.NoError(t, s.CheckInvariants())
		}
	})
}

func TestHierarchyStore_CycleMovesAlwaysFail(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, err := NewHierarchyStore(nil, WithIDGenerator(sequentialIDs("P")))
		require.NoError(t, err)
		for i := range rapid.IntRange(2, 25).Draw(t, "size") {
			parent := ""
			if i > 0 {
				parent = pickID(t, s, "parent")
				if parent == "ghost" {
					parent = ""
				}
			}
			_, err := s.AddNode(position.Input{Name: "n"}, parent)
			require.NoError(t, err)
		}

		id := pickID(t, s, "id")
		if id == "" || id == "ghost" {
			return
		}
		desc, err := s.Descendants(id)
		require.NoError(t, err)
		targets := []string{id}
		for _, d := range desc {
			targets = append(targets, d.ID)
		}
		target := rapid.SampledFrom(targets).Draw(t, "target")

		before := s.Nodes()
		_, err = s.MoveNode(id, target)
		require.True(t, position.IsCycle(err))
		require.Equal(t, before, s.Nodes())
	})
}

func TestHierarchyStore_ProjectionIsPreorderOfVisibleNodes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, err := NewHierarchyStore(nil, WithIDGenerator(sequentialIDs("P")))
		require.NoError(t, err)
		for range rapid.IntRange(1, 30).Draw(t, "size") {
			_, err := s.AddNode(position.Input{Name: rapid.SampledFrom([]string{"ann", "bob", "cat"}).Draw(t, "name")}, pickIDOrRoot(t, s))
			require.NoError(t, err)
		}
		s.ExpandAll()
		rows := s.VisibleProjection()
		all := s.Nodes()
		require.Len(t, rows, len(all))
		for i := range rows {
			require.Equal(t, all[i].ID, rows[i].Node.ID)
			require.Equal(t, all[i].Level-1, rows[i].Depth)
		}

		s.SetSearchTerm("bob")
		for _, r := range s.VisibleProjection() {
			if r.MatchesSearch {
				continue
			}
			// non-matching rows are there only to lead to a match
			require.True(t, r.HasChildren)
			desc, err := s.Descendants(r.Node.ID)
			require.NoError(t, err)
			require.True(t, slices.ContainsFunc(desc, func(n position.Node) bool { return n.Name == "bob" }))
		}
	})
}

func pickIDOrRoot(t *rapid.T, s *HierarchyStore) string {
	id := pickID(t, s, "parent")
	if id == "ghost" {
		return ""
	}
	return id
}

func mustNodeRapid(t *rapid.T, s *HierarchyStore, id string) position.Node {
	n, err := s.Node(id)
	require.NoError(t, err)
	return n
}
