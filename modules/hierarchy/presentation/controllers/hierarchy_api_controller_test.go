package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/modules/hierarchy/presentation/viewmodels"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/application"
)

type apiFixture struct {
	router *mux.Router
	svc    *services.HierarchyService
}

// newFixture serves A(Alice) -> B(Bob), C(Carol); B -> D(Dana).
func newFixture(t *testing.T, opts ...ControllerOption) *apiFixture {
	t.Helper()
	store, err := services.NewHierarchyStore(services.LinkChildren([]position.Node{
		{ID: "A", Name: "Alice", Title: "CEO", Department: "Executive", EmployeeCount: 1},
		{ID: "B", ParentID: "A", Name: "Bob", Title: "VP Engineering", Department: "Engineering", EmployeeCount: 2},
		{ID: "C", ParentID: "A", Name: "Carol", Title: "CFO", Department: "Finance", EmployeeCount: 3},
		{ID: "D", ParentID: "B", Name: "Dana", Title: "Engineer", Department: "Engineering", EmployeeCount: 4},
	}))
	require.NoError(t, err)

	logger, _ := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger})
	svc := services.NewHierarchyService(store, logger)
	app.RegisterServices(svc)

	r := mux.NewRouter()
	NewHierarchyAPIController(app, opts...).Register(r)
	return &apiFixture{router: r, svc: svc}
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func rowIDs(tree viewmodels.HierarchyTree) []string {
	out := make([]string, 0, len(tree.Rows))
	for _, r := range tree.Rows {
		out = append(out, r.ID)
	}
	return out
}

func requireAPIError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) APIError {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	apiErr := decode[APIError](t, rr)
	require.Equal(t, code, apiErr.Code)
	require.Equal(t, "req-1", apiErr.Meta["request_id"])
	return apiErr
}

func TestHierarchyAPI_Projection(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/hierarchy/api/projection", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Equal(t, []string{"A"}, rowIDs(decode[viewmodels.HierarchyTree](t, rr)))

	rr = f.do(t, http.MethodGet, "/hierarchy/api/projection?expand_all=1&selected=D", nil)
	tree := decode[viewmodels.HierarchyTree](t, rr)
	require.Equal(t, []string{"A", "B", "D", "C"}, rowIDs(tree))
	require.Equal(t, 10, tree.Rows[0].SubtreeEmployeeCount)
	require.True(t, tree.Rows[2].Selected)
	require.Equal(t, 2, tree.Rows[2].Depth)

	rr = f.do(t, http.MethodGet, "/hierarchy/api/projection?expanded=A", nil)
	require.Equal(t, []string{"A", "B", "C"}, rowIDs(decode[viewmodels.HierarchyTree](t, rr)))

	rr = f.do(t, http.MethodGet, "/hierarchy/api/projection?expand_all=maybe", nil)
	requireAPIError(t, rr, http.StatusBadRequest, "HIERARCHY_INVALID_QUERY")
}

func TestHierarchyAPI_ProjectionSearchDoesNotTouchSharedView(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/hierarchy/api/projection?search=dana", nil)
	tree := decode[viewmodels.HierarchyTree](t, rr)
	require.Equal(t, []string{"A", "B", "D"}, rowIDs(tree))
	require.True(t, tree.Rows[0].ForcedOpen)
	require.False(t, tree.Rows[0].Matches)
	require.True(t, tree.Rows[2].Matches)

	vs := f.svc.ViewState()
	require.Empty(t, vs.ExpandedIDs())
	require.Empty(t, vs.SearchTerm)
}

func TestHierarchyAPI_SharedViewState(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/hierarchy/api/nodes/A:toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	toggled := decode[map[string]any](t, rr)
	require.Equal(t, true, toggled["expanded"])

	rr = f.do(t, http.MethodPut, "/hierarchy/api/search", map[string]string{"term": "Engineer"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"A", "B", "D"}, rowIDs(decode[viewmodels.HierarchyTree](t, rr)))

	rr = f.do(t, http.MethodGet, "/hierarchy/api/view", nil)
	view := decode[struct {
		Expanded   []string `json:"expanded"`
		SearchTerm string   `json:"search_term"`
	}](t, rr)
	require.Equal(t, []string{"A"}, view.Expanded)
	require.Equal(t, "Engineer", view.SearchTerm)

	rr = f.do(t, http.MethodPut, "/hierarchy/api/search", map[string]string{"term": "   "})
	require.Equal(t, []string{"A", "B", "C"}, rowIDs(decode[viewmodels.HierarchyTree](t, rr)))

	rr = f.do(t, http.MethodPut, "/hierarchy/api/search", `{"query":"x"}`)
	requireAPIError(t, rr, http.StatusBadRequest, "HIERARCHY_INVALID_BODY")
}

func TestHierarchyAPI_CreateAndGetNode(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/hierarchy/api/nodes", map[string]any{
		"name":           "  Erin ",
		"title":          "Engineer",
		"employee_count": 5,
		"parent_id":      "B",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[position.Node](t, rr)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Erin", created.Name)
	require.Equal(t, "B", created.ParentID)
	require.Equal(t, 3, created.Level)
	require.Equal(t, position.StatusActive, created.Status)

	rr = f.do(t, http.MethodGet, "/hierarchy/api/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[nodeResponse](t, rr)
	require.Equal(t, created.ID, got.Node.ID)
	require.Len(t, got.Ancestors, 2)
	require.Equal(t, "A", got.Ancestors[0].ID)
	require.Equal(t, "B", got.Ancestors[1].ID)
	require.Equal(t, 5, got.SubtreeEmployeeCount)

	rr = f.do(t, http.MethodGet, "/hierarchy/api/nodes/B", nil)
	require.Equal(t, 11, decode[nodeResponse](t, rr).SubtreeEmployeeCount)

	rr = f.do(t, http.MethodGet, "/hierarchy/api/nodes", nil)
	list := decode[struct {
		Nodes []position.Node `json:"nodes"`
	}](t, rr)
	require.Len(t, list.Nodes, 5)
}

func TestHierarchyAPI_CreateNodeErrors(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/hierarchy/api/nodes", map[string]any{"name": " "})
	apiErr := requireAPIError(t, rr, http.StatusUnprocessableEntity, "HIERARCHY_VALIDATION")
	require.Equal(t, "name", apiErr.Meta["field"])

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes", map[string]any{"name": "X", "parent_id": "nope"})
	requireAPIError(t, rr, http.StatusNotFound, "HIERARCHY_NODE_NOT_FOUND")

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes", `{"name":`)
	requireAPIError(t, rr, http.StatusBadRequest, "HIERARCHY_INVALID_BODY")

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes", map[string]any{"name": "X", "manager": "A"})
	requireAPIError(t, rr, http.StatusBadRequest, "HIERARCHY_INVALID_BODY")

	require.Len(t, f.svc.Nodes(), 4)
}

func TestHierarchyAPI_UpdateNode(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPatch, "/hierarchy/api/nodes/B", map[string]any{"title": "CTO", "status": "inactive"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[position.Node](t, rr)
	require.Equal(t, "CTO", updated.Title)
	require.Equal(t, "Bob", updated.Name)
	require.Equal(t, position.StatusInactive, updated.Status)

	rr = f.do(t, http.MethodPatch, "/hierarchy/api/nodes/B", map[string]any{"parent_id": "C"})
	apiErr := requireAPIError(t, rr, http.StatusUnprocessableEntity, "HIERARCHY_VALIDATION")
	require.Equal(t, "parent_id", apiErr.Meta["field"])

	rr = f.do(t, http.MethodPatch, "/hierarchy/api/nodes/B", map[string]any{"employee_count": -1})
	requireAPIError(t, rr, http.StatusUnprocessableEntity, "HIERARCHY_VALIDATION")

	rr = f.do(t, http.MethodPatch, "/hierarchy/api/nodes/Z", map[string]any{"title": "x"})
	requireAPIError(t, rr, http.StatusNotFound, "HIERARCHY_NODE_NOT_FOUND")

	n, err := f.svc.Node("B")
	require.NoError(t, err)
	require.Equal(t, "A", n.ParentID)
	require.Equal(t, "CTO", n.Title)
}

func TestHierarchyAPI_MoveNode(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/hierarchy/api/nodes/A:move", map[string]string{"new_parent_id": "D"})
	requireAPIError(t, rr, http.StatusConflict, "HIERARCHY_CYCLE")

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes/B:move", map[string]string{"new_parent_id": "B"})
	requireAPIError(t, rr, http.StatusConflict, "HIERARCHY_CYCLE")

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes/D:move", map[string]string{"new_parent_id": "C"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	moved := decode[position.Node](t, rr)
	require.Equal(t, "C", moved.ParentID)
	require.Equal(t, 3, moved.Level)

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes/C:move", map[string]string{"new_parent_id": ""})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, decode[position.Node](t, rr).Level)

	rr = f.do(t, http.MethodPost, "/hierarchy/api/nodes/Q:move", map[string]string{"new_parent_id": "A"})
	requireAPIError(t, rr, http.StatusNotFound, "HIERARCHY_NODE_NOT_FOUND")
}

func TestHierarchyAPI_DeleteNode(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodDelete, "/hierarchy/api/nodes/B", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[struct {
		Removed []string `json:"removed"`
		Cascade bool     `json:"cascade"`
	}](t, rr)
	require.Equal(t, []string{"B"}, res.Removed)
	require.False(t, res.Cascade)

	d, err := f.svc.Node("D")
	require.NoError(t, err)
	require.Equal(t, "A", d.ParentID)
	require.Equal(t, 2, d.Level)

	rr = f.do(t, http.MethodDelete, "/hierarchy/api/nodes/A?cascade=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, f.svc.Nodes())

	rr = f.do(t, http.MethodDelete, "/hierarchy/api/nodes/A", nil)
	requireAPIError(t, rr, http.StatusNotFound, "HIERARCHY_NODE_NOT_FOUND")

	rr = f.do(t, http.MethodDelete, "/hierarchy/api/nodes/A?cascade=perhaps", nil)
	requireAPIError(t, rr, http.StatusBadRequest, "HIERARCHY_INVALID_QUERY")
}

func TestHierarchyAPI_DeleteNodeDefaultCascade(t *testing.T) {
	f := newFixture(t, WithDefaultCascade(true))

	rr := f.do(t, http.MethodDelete, "/hierarchy/api/nodes/B", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[struct {
		Removed []string `json:"removed"`
	}](t, rr)
	require.Equal(t, []string{"B", "D"}, res.Removed)

	rr = f.do(t, http.MethodDelete, "/hierarchy/api/nodes/C?cascade=off", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.svc.Nodes(), 1)
}

func TestHierarchyAPI_Stats(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/hierarchy/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	st := decode[services.Stats](t, rr)
	require.Equal(t, 4, st.Positions)
	require.Equal(t, 10, st.TotalEmployees)
	require.Equal(t, 3, st.MaxDepth)
	require.Equal(t, 6, st.ByDepartment["Engineering"])
}

func TestHierarchyAPI_GeneratesRequestID(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/hierarchy/api/nodes/missing", nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	apiErr := decode[APIError](t, rr)
	require.NotEmpty(t, apiErr.Meta["request_id"])
}

func TestHierarchyAPI_InstrumentsRequests(t *testing.T) {
	f := newFixture(t)
	counter := hierarchyAPIRequests.WithLabelValues("hierarchy.nodes.get", "4xx")
	before := testutil.ToFloat64(counter)

	f.do(t, http.MethodGet, "/hierarchy/api/nodes/missing", nil)

	require.InDelta(t, before+1, testutil.ToFloat64(counter), 0.0001)
}

func TestHierarchyAPI_UpdateNodeWithJSONPatch(t *testing.T) {
	f := newFixture(t)
	patch := func(target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", position.JSONPatchContentType)
		req.Header.Set(RequestIDHeader, "req-1")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		return rr
	}

	rr := patch("/hierarchy/api/nodes/D", `[{"op":"test","path":"/name","value":"Dana"},{"op":"replace","path":"/title","value":"Staff Engineer"}]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "Staff Engineer", decode[position.Node](t, rr).Title)

	rr = patch("/hierarchy/api/nodes/D", `[{"op":"test","path":"/name","value":"Someone"}]`)
	requireAPIError(t, rr, http.StatusUnprocessableEntity, "HIERARCHY_VALIDATION")

	rr = patch("/hierarchy/api/nodes/Z", `[]`)
	requireAPIError(t, rr, http.StatusNotFound, "HIERARCHY_NODE_NOT_FOUND")
}
