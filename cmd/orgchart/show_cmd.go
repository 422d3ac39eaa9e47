package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

type viewOptions struct {
	search    string
	expanded  []string
	expandAll bool
	depth     int
}

func (v *viewOptions) bind(cmd *cobra.Command, expandAllDefault bool) {
	cmd.Flags().StringVar(&v.search, "search", "", "Filter by name, title or department")
	cmd.Flags().StringSliceVar(&v.expanded, "expand", nil, "Ids to expand (comma separated)")
	cmd.Flags().BoolVar(&v.expandAll, "expand-all", expandAllDefault, "Expand every node")
	cmd.Flags().IntVar(&v.depth, "depth", 0, "Expand nodes down to this level (0 = off)")
}

// apply sets up the store's view state from the flags.
func (v *viewOptions) apply(store *services.HierarchyStore) error {
	if v.depth < 0 {
		return withCode(exitUsage, errors.Errorf("invalid --depth %d", v.depth))
	}
	switch {
	case v.expandAll:
		store.ExpandAll()
	case v.depth > 0:
		store.ExpandToDepth(v.depth)
	}
	for _, id := range v.expanded {
		if id = strings.TrimSpace(id); id != "" {
			store.SetExpanded(id, true)
		}
	}
	store.SetSearchTerm(v.search)
	return nil
}

func newShowCmd(global *globalOptions) *cobra.Command {
	var view viewOptions
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the visible projection of the hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.loadStore()
			if err != nil {
				return err
			}
			if err := view.apply(store); err != nil {
				return err
			}
			rows := store.VisibleProjection()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "text", "":
				return writeTree(cmd.OutOrStdout(), rows)
			case "json":
				for _, r := range rows {
					if err := writeJSONLine(cmd.OutOrStdout(), r); err != nil {
						return err
					}
				}
				return nil
			default:
				return withCode(exitUsage, errors.Errorf("invalid --format %q (expected text|json)", format))
			}
		},
	}
	view.bind(cmd, false)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	return cmd
}
