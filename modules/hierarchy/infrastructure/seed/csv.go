package seed

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

var (
	csvRequired = []string{"id", "name"}
	csvColumns  = []string{"id", "parent_id", "name", "title", "department", "employee_count", "status"}
)

// decodeCSV reads the flat layout: one position per row, parents referenced by parent_id.
// Row order defines sibling order.
func decodeCSV(r io.Reader) ([]position.Node, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := requireHeader(header, csvRequired, csvColumns); err != nil {
		return nil, err
	}
	idx := headerIndex(header)

	nodes := make([]position.Node, 0, 32)
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		n := position.Node{
			ID:         get("id"),
			ParentID:   get("parent_id"),
			Name:       get("name"),
			Title:      get("title"),
			Department: get("department"),
			Status:     position.Status(strings.ToLower(get("status"))),
		}
		if n.ID == "" {
			return nil, errors.Errorf("line %d: id is required", line)
		}
		if raw := get("employee_count"); raw != "" {
			count, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errors.Errorf("line %d: invalid employee_count %q", line, raw)
			}
			n.EmployeeCount = count
		}
		nodes = append(nodes, n)
	}
	return services.LinkChildren(nodes), nil
}

func encodeCSV(w io.Writer, nodes []position.Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return errors.Wrap(err, "csv header")
	}
	for _, n := range nodes {
		if err := cw.Write([]string{
			n.ID,
			n.ParentID,
			n.Name,
			n.Title,
			n.Department,
			strconv.Itoa(n.EmployeeCount),
			string(n.Status),
		}); err != nil {
			return errors.Wrapf(err, "csv row %s", n.ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header")
		}
		return nil, err
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, errors.New("invalid header encoding")
		}
	}
	return h, nil
}

func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

func requireHeader(header []string, required []string, allowed []string) error {
	hset := make(map[string]struct{}, len(header))
	for _, h := range header {
		hset[h] = struct{}{}
	}
	for _, req := range required {
		if _, ok := hset[req]; !ok {
			return errors.Errorf("missing required header column: %s", req)
		}
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	for _, h := range header {
		if _, ok := allowedSet[h]; !ok {
			return errors.Errorf("unexpected header column: %s", h)
		}
	}
	return nil
}
