package main

import (
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/seed"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/eventbus"
)

// script is a YAML batch of hierarchy operations. Ids starting with "$" refer to the
// ref of an earlier add op.
type script struct {
	Ops []scriptOp `yaml:"ops"`
}

type scriptOp struct {
	Op      string         `yaml:"op"`
	Ref     string         `yaml:"ref"`
	ID      string         `yaml:"id"`
	Parent  string         `yaml:"parent"`
	Input   position.Input `yaml:"input"`
	Patch   map[string]any `yaml:"patch"`
	Cascade *bool          `yaml:"cascade"`
	Term    string         `yaml:"term"`
}

// opResult is one output line per op. Diff holds the RFC 6902 changes made by an update.
type opResult struct {
	Index    int            `json:"index"`
	Op       string         `json:"op"`
	ID       string         `json:"id,omitempty"`
	Removed  []string       `json:"removed,omitempty"`
	Expanded *bool          `json:"expanded,omitempty"`
	Diff     jsondiff.Patch `json:"diff,omitempty"`
}

// applySummary is the last line written by apply.
type applySummary struct {
	Ops     int            `json:"ops"`
	Changed []string       `json:"changed"`
	Removed []string       `json:"removed"`
	Stats   services.Stats `json:"stats"`
}

// changeTracker collects the ids touched by mutation events.
type changeTracker struct {
	changed map[string]bool
	removed []string
}

func newChangeTracker(bus eventbus.EventBus) *changeTracker {
	c := &changeTracker{changed: map[string]bool{}, removed: []string{}}
	bus.Subscribe(func(e *position.AddedEvent) { c.changed[e.Node.ID] = true })
	bus.Subscribe(func(e *position.UpdatedEvent) { c.changed[e.After.ID] = true })
	bus.Subscribe(func(e *position.MovedEvent) { c.changed[e.Node.ID] = true })
	bus.Subscribe(func(e *position.RemovedEvent) {
		for _, id := range e.RemovedIDs {
			delete(c.changed, id)
		}
		c.removed = append(c.removed, e.RemovedIDs...)
		for _, id := range e.Reparented {
			c.changed[id] = true
		}
	})
	return c
}

func (c *changeTracker) changedIDs() []string {
	ids := make([]string, 0, len(c.changed))
	for id := range c.changed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func newApplyCmd(global *globalOptions) *cobra.Command {
	var scriptPath, writePath string
	var defaultCascade bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run a YAML script of add/update/move/remove/toggle/search ops against the seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(scriptPath) == "" {
				return withCode(exitUsage, errors.New("--script is required"))
			}
			sc, err := readScript(scriptPath)
			if err != nil {
				return err
			}
			store, err := global.loadStore()
			if err != nil {
				return err
			}
			logger, err := global.logger(cmd)
			if err != nil {
				return err
			}
			bus := eventbus.NewEventPublisher(logger)
			tracker := newChangeTracker(bus)
			svc := services.NewHierarchyService(store, logger, services.WithPublisher(bus))

			refs := map[string]string{}
			for i, op := range sc.Ops {
				res, err := runOp(svc, refs, op, defaultCascade)
				if err != nil {
					return classify(errors.Wrapf(err, "op #%d (%s)", i, op.Op))
				}
				res.Index = i
				if err := writeJSONLine(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}

			if writePath != "" {
				if err := writeSeed(writePath, svc.Nodes()); err != nil {
					return err
				}
			}
			return writeJSONLine(cmd.OutOrStdout(), applySummary{
				Ops:     len(sc.Ops),
				Changed: tracker.changedIDs(),
				Removed: tracker.removed,
				Stats:   svc.Stats(),
			})
		},
	}
	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML ops script (required)")
	cmd.Flags().StringVar(&writePath, "write", "", "Write the resulting forest to this seed file")
	cmd.Flags().BoolVar(&defaultCascade, "cascade", global.defaultCascade, "Default cascade for remove ops")
	return cmd
}

func readScript(path string) (script, error) {
	f, err := os.Open(path)
	if err != nil {
		return script{}, withCode(exitUsage, errors.Wrapf(err, "read %s", path))
	}
	defer f.Close()

	var sc script
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return script{}, withCode(exitValidation, errors.Wrapf(err, "decode %s", path))
	}
	return sc, nil
}

func resolve(refs map[string]string, id string) (string, error) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "$") {
		return id, nil
	}
	mapped, ok := refs[strings.TrimPrefix(id, "$")]
	if !ok {
		return "", errors.Errorf("unknown ref %s", id)
	}
	return mapped, nil
}

func runOp(svc *services.HierarchyService, refs map[string]string, op scriptOp, defaultCascade bool) (opResult, error) {
	res := opResult{Op: op.Op}
	id, err := resolve(refs, op.ID)
	if err != nil {
		return res, err
	}
	parent, err := resolve(refs, op.Parent)
	if err != nil {
		return res, err
	}
	res.ID = id

	switch op.Op {
	case "add":
		n, err := svc.AddNode(op.Input, parent)
		if err != nil {
			return res, err
		}
		if op.Ref != "" {
			refs[op.Ref] = n.ID
		}
		res.ID = n.ID
	case "update":
		patch, err := position.PatchFromMap(op.Patch)
		if err != nil {
			return res, err
		}
		before, err := svc.Node(id)
		if err != nil {
			return res, err
		}
		after, err := svc.UpdateNode(id, patch)
		if err != nil {
			return res, err
		}
		if res.Diff, err = jsondiff.Compare(before, after); err != nil {
			return res, err
		}
	case "move":
		if _, err := svc.MoveNode(id, parent); err != nil {
			return res, err
		}
	case "remove":
		cascade := defaultCascade
		if op.Cascade != nil {
			cascade = *op.Cascade
		}
		removed, err := svc.RemoveNode(id, cascade)
		if err != nil {
			return res, err
		}
		res.Removed = removed
	case "toggle":
		expanded := svc.ToggleExpanded(id)
		res.Expanded = &expanded
	case "search":
		svc.SetSearchTerm(op.Term)
		res.ID = ""
	default:
		return res, errors.Errorf("unknown op %q", op.Op)
	}
	return res, nil
}

func writeSeed(path string, nodes []position.Node) error {
	format, err := seed.FormatFromPath(path)
	if err != nil {
		return classify(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return withCode(exitIO, errors.Wrapf(err, "create %s", path))
	}
	if err := seed.Encode(f, nodes, format); err != nil {
		_ = f.Close()
		return withCode(exitIO, err)
	}
	if err := f.Close(); err != nil {
		return withCode(exitIO, errors.Wrapf(err, "close %s", path))
	}
	return nil
}
