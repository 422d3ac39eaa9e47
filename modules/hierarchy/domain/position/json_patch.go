package position

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// JSONPatchContentType selects RFC 6902 patch documents on update endpoints.
const JSONPatchContentType = "application/json-patch+json"

type patchDocument struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	Department    string `json:"department"`
	EmployeeCount int    `json:"employee_count"`
	Status        Status `json:"status"`
}

// ParseJSONPatch applies RFC 6902 operations to the mutable fields of n and returns a Patch holding
// only the fields the operations changed. Paths outside those fields (parent_id, child_ids, ...) fail
// because the document does not contain them, and removing a field is rejected.
func ParseJSONPatch(n Node, raw []byte) (Patch, error) {
	ops, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return Patch{}, NewValidation("", fmt.Sprintf("invalid json patch: %v", err))
	}
	before, err := json.Marshal(patchDocument{
		Name:          n.Name,
		Title:         n.Title,
		Department:    n.Department,
		EmployeeCount: n.EmployeeCount,
		Status:        n.Status,
	})
	if err != nil {
		return Patch{}, err
	}
	after, err := ops.Apply(before)
	if err != nil {
		return Patch{}, NewValidation("", fmt.Sprintf("json patch: %v", err))
	}

	var old, updated map[string]json.RawMessage
	if err := json.Unmarshal(before, &old); err != nil {
		return Patch{}, err
	}
	if err := json.Unmarshal(after, &updated); err != nil || updated == nil {
		return Patch{}, NewValidation("", "json patch must leave an object")
	}
	keys := make([]string, 0, len(old))
	for k := range old {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := updated[k]; !ok {
			return Patch{}, NewValidation(k, "cannot be removed; use replace instead")
		}
	}

	changed := make(map[string]json.RawMessage, len(updated))
	for k, v := range updated {
		if prev, ok := old[k]; ok && sameJSON(prev, v) {
			continue
		}
		changed[k] = v
	}
	diff, err := json.Marshal(changed)
	if err != nil {
		return Patch{}, err
	}
	return ParsePatch(diff)
}

func sameJSON(a, b json.RawMessage) bool {
	var x, y any
	if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}
