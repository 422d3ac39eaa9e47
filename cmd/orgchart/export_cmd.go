package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/export"
)

func newExportCmd(global *globalOptions) *cobra.Command {
	var view viewOptions
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the visible projection as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(format) == "" && output != "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return classify(err)
			}
			store, err := global.loadStore()
			if err != nil {
				return err
			}
			if err := view.apply(store); err != nil {
				return err
			}
			rows := store.VisibleProjection()

			if output == "" || output == "-" {
				if err := export.Write(cmd.OutOrStdout(), rows, f); err != nil {
					return withCode(exitIO, err)
				}
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return withCode(exitIO, errors.Wrapf(err, "mkdir %s", filepath.Dir(output)))
			}
			file, err := os.Create(output)
			if err != nil {
				return withCode(exitIO, errors.Wrapf(err, "create %s", output))
			}
			if err := export.Write(file, rows, f); err != nil {
				_ = file.Close()
				return withCode(exitIO, err)
			}
			if err := file.Close(); err != nil {
				return withCode(exitIO, errors.Wrapf(err, "close %s", output))
			}
			type exportResult struct {
				Output string `json:"output"`
				Format string `json:"format"`
				Rows   int    `json:"rows"`
			}
			return writeJSONLine(cmd.OutOrStdout(), exportResult{Output: output, Format: string(f), Rows: len(rows)})
		},
	}
	view.bind(cmd, true)
	cmd.Flags().StringVar(&format, "format", "", "Export format: csv|xlsx (defaults to the --output extension)")
	cmd.Flags().StringVar(&output, "output", "", "Output file; empty or - writes to stdout")
	return cmd
}
