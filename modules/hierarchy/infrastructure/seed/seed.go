// Package seed reads and writes the static forest a hierarchy store is constructed from.
package seed

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTOML Format = "toml"
)

var ErrUnsupportedFormat = errors.New("unsupported seed format")

func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
}

// Document is the nested seed layout used by YAML, JSON and TOML files.
type Document struct {
	Positions []Entry `yaml:"positions" json:"positions" toml:"positions"`
}

type Entry struct {
	ID            string  `yaml:"id,omitempty" json:"id,omitempty" toml:"id,omitempty"`
	Name          string  `yaml:"name" json:"name" toml:"name"`
	Title         string  `yaml:"title,omitempty" json:"title,omitempty" toml:"title,omitempty"`
	Department    string  `yaml:"department,omitempty" json:"department,omitempty" toml:"department,omitempty"`
	EmployeeCount int     `yaml:"employee_count" json:"employee_count" toml:"employee_count"`
	Status        string  `yaml:"status,omitempty" json:"status,omitempty" toml:"status,omitempty"`
	Children      []Entry `yaml:"children,omitempty" json:"children,omitempty" toml:"children,omitempty"`
}

// Load reads a seed file, picking the decoder from its extension.
func Load(path string) ([]position.Node, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed")
	}
	defer f.Close()

	nodes, err := Decode(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return nodes, nil
}

// LoadStore is Load followed by NewHierarchyStore.
func LoadStore(path string, opts ...services.Option) (*services.HierarchyStore, error) {
	nodes, err := Load(path)
	if err != nil {
		return nil, err
	}
	store, err := services.NewHierarchyStore(nodes, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "build hierarchy from %s", path)
	}
	return store, nil
}

func Decode(r io.Reader, format Format) ([]position.Node, error) {
	switch format {
	case FormatYAML:
		var doc Document
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return []position.Node{}, nil
			}
			return nil, errors.Wrap(err, "yaml")
		}
		return flatten(doc.Positions), nil
	case FormatJSON:
		var doc Document
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "json")
		}
		return flatten(doc.Positions), nil
	case FormatCSV:
		return decodeCSV(r)
	case FormatTOML:
		var doc Document
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, errors.Wrap(err, "toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("toml: unknown field %q", undecoded[0].String())
		}
		return flatten(doc.Positions), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}

// flatten turns nested entries into arena nodes in pre-order. Entries without an id get a fresh one.
func flatten(entries []Entry) []position.Node {
	out := make([]position.Node, 0, len(entries))
	var walk func(e Entry, parentID string) string
	walk = func(e Entry, parentID string) string {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = uuid.NewString()
		}
		idx := len(out)
		out = append(out, position.Node{
			ID:            id,
			Name:          strings.TrimSpace(e.Name),
			Title:         strings.TrimSpace(e.Title),
			Department:    strings.TrimSpace(e.Department),
			ParentID:      parentID,
			ChildIDs:      make([]string, 0, len(e.Children)),
			EmployeeCount: e.EmployeeCount,
			Status:        position.Status(strings.ToLower(strings.TrimSpace(e.Status))),
		})
		for _, c := range e.Children {
			childID := walk(c, id)
			out[idx].ChildIDs = append(out[idx].ChildIDs, childID)
		}
		return id
	}
	for _, e := range entries {
		walk(e, "")
	}
	return out
}

// Nest rebuilds the nested layout from arena nodes. Roots keep their order in nodes.
func Nest(nodes []position.Node) Document {
	byID := make(map[string]position.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	var build func(n position.Node) Entry
	build = func(n position.Node) Entry {
		e := Entry{
			ID:            n.ID,
			Name:          n.Name,
			Title:         n.Title,
			Department:    n.Department,
			EmployeeCount: n.EmployeeCount,
			Status:        string(n.Status),
		}
		for _, c := range n.ChildIDs {
			if child, ok := byID[c]; ok {
				e.Children = append(e.Children, build(child))
			}
		}
		return e
	}
	doc := Document{Positions: []Entry{}}
	for _, n := range nodes {
		if n.IsRoot() {
			doc.Positions = append(doc.Positions, build(n))
		}
	}
	return doc
}

func Encode(w io.Writer, nodes []position.Node, format Format) error {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(Nest(nodes)); err != nil {
			return errors.Wrap(err, "yaml")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "yaml")
		}
		_, err := w.Write(buf.Bytes())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(Nest(nodes)); err != nil {
			return errors.Wrap(err, "json")
		}
		return nil
	case FormatCSV:
		return encodeCSV(w, nodes)
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(Nest(nodes)); err != nil {
			return errors.Wrap(err, "toml")
		}
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}
