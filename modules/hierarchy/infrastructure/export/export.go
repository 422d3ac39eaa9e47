// Package export writes projection rows as spreadsheets for offline review.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const SheetName = "Hierarchy"

var ErrUnsupportedFormat = errors.New("unsupported export format")

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", raw)
	}
}

var Columns = []string{
	"id", "parent_id", "depth", "name", "title", "department",
	"status", "employee_count", "subtree_employee_count", "matches_search",
}

// Rows renders entries as string cells in Columns order. Names are indented two spaces per depth.
func Rows(entries []services.ProjectionEntry) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{
			e.Node.ID,
			e.Node.ParentID,
			strconv.Itoa(e.Depth),
			strings.Repeat("  ", e.Depth) + e.Node.Name,
			e.Node.Title,
			e.Node.Department,
			string(e.Node.Status),
			strconv.Itoa(e.Node.EmployeeCount),
			strconv.Itoa(e.SubtreeEmployeeCount),
			strconv.FormatBool(e.MatchesSearch),
		})
	}
	return out
}

func Write(w io.Writer, entries []services.ProjectionEntry, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}

func WriteCSV(w io.Writer, entries []services.ProjectionEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "csv header")
	}
	if err := cw.WriteAll(Rows(entries)); err != nil {
		return errors.Wrap(err, "csv rows")
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook. Numeric columns are stored as numbers so
// spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, entries []services.ProjectionEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	for i, col := range Columns {
		if err := setCell(f, i+1, 1, col); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return errors.Wrap(err, "header range")
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return errors.Wrap(err, "header style")
	}

	for r, e := range entries {
		row := r + 2
		values := []any{
			e.Node.ID,
			e.Node.ParentID,
			e.Depth,
			strings.Repeat("  ", e.Depth) + e.Node.Name,
			e.Node.Title,
			e.Node.Department,
			string(e.Node.Status),
			e.Node.EmployeeCount,
			e.SubtreeEmployeeCount,
			e.MatchesSearch,
		}
		for c, v := range values {
			if err := setCell(f, c+1, row, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(SheetName, "D", "F", 28); err != nil {
		return errors.Wrap(err, "column width")
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrapf(err, "cell %d,%d", col, row)
	}
	if err := f.SetCellValue(SheetName, cell, v); err != nil {
		return errors.Wrapf(err, "set %s", cell)
	}
	return nil
}
