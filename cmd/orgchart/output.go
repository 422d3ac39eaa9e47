package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitIO, errors.Wrap(err, "json encode"))
	}
	return nil
}

// writeTree prints one projection row per line, indented by depth.
// Markers: [-] open, [+] closed with children, * search match.
func writeTree(w io.Writer, rows []services.ProjectionEntry) error {
	for _, r := range rows {
		marker := "   "
		if r.HasChildren {
			marker = "[+]"
			if r.IsExpanded {
				marker = "[-]"
			}
		}
		match := ""
		if r.MatchesSearch {
			match = " *"
		}
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", r.Depth), marker, r.Node.Name)
		if r.Node.Title != "" {
			line += " - " + r.Node.Title
		}
		if r.Node.Department != "" {
			line += " (" + r.Node.Department + ")"
		}
		line += fmt.Sprintf(" [%d/%d]%s", r.Node.EmployeeCount, r.SubtreeEmployeeCount, match)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return withCode(exitIO, errors.Wrap(err, "write tree"))
		}
	}
	return nil
}
