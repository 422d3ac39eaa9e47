package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/modules/hierarchy/domain/position"
	"github.com/iota-uz/orgchart/modules/hierarchy/presentation/mappers"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/httpapi"
)

const (
	RequestIDHeader = httpapi.RequestIDHeader
	maxBodyBytes    = 1 << 20
)

type APIError = httpapi.ErrorEnvelope

type HierarchyAPIController struct {
	hierarchy      *services.HierarchyService
	log            logrus.FieldLogger
	defaultCascade bool
	apiPrefix      string
}

type ControllerOption func(*HierarchyAPIController)

// WithDefaultCascade sets what DELETE does when the request has no cascade parameter.
func WithDefaultCascade(cascade bool) ControllerOption {
	return func(c *HierarchyAPIController) {
		c.defaultCascade = cascade
	}
}

func NewHierarchyAPIController(app application.Application, opts ...ControllerOption) application.Controller {
	c := &HierarchyAPIController{
		hierarchy: app.Service(services.HierarchyService{}).(*services.HierarchyService),
		log:       app.Logger().WithField("controller", "hierarchy_api"),
		apiPrefix: "/hierarchy/api",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HierarchyAPIController) Key() string {
	return c.apiPrefix
}

func (c *HierarchyAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/projection", c.instrumentAPI("hierarchy.projection", c.GetProjection)).Methods(http.MethodGet)
	api.HandleFunc("/view", c.instrumentAPI("hierarchy.view", c.GetView)).Methods(http.MethodGet)
	api.HandleFunc("/search", c.instrumentAPI("hierarchy.search", c.SetSearch)).Methods(http.MethodPut)
	api.HandleFunc("/stats", c.instrumentAPI("hierarchy.stats", c.GetStats)).Methods(http.MethodGet)

	api.HandleFunc("/nodes", c.instrumentAPI("hierarchy.nodes.list", c.ListNodes)).Methods(http.MethodGet)
	api.HandleFunc("/nodes", c.instrumentAPI("hierarchy.nodes.create", c.CreateNode)).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}:move", c.instrumentAPI("hierarchy.nodes.move", c.MoveNode)).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}:toggle", c.instrumentAPI("hierarchy.nodes.toggle", c.ToggleNode)).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}", c.instrumentAPI("hierarchy.nodes.get", c.GetNode)).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", c.instrumentAPI("hierarchy.nodes.update", c.UpdateNode)).Methods(http.MethodPatch)
	api.HandleFunc("/nodes/{id}", c.instrumentAPI("hierarchy.nodes.delete", c.DeleteNode)).Methods(http.MethodDelete)
}

// GetProjection renders the shared view state, or a request-local one when any of
// search, expanded or expand_all is present in the query.
func (c *HierarchyAPIController) GetProjection(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	q := r.URL.Query()

	vs, custom, err := c.viewStateFromQuery(q)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_QUERY", err.Error())
		return
	}
	if !custom {
		vs = c.hierarchy.ViewState()
	}
	rows := c.hierarchy.Project(vs)
	writeJSON(w, http.StatusOK, mappers.ProjectionToTree(rows, vs, strings.TrimSpace(q.Get("selected"))))
}

func (c *HierarchyAPIController) viewStateFromQuery(q map[string][]string) (services.ViewState, bool, error) {
	get := func(k string) (string, bool) {
		v, ok := q[k]
		if !ok || len(v) == 0 {
			return "", ok
		}
		return v[0], true
	}
	term, hasSearch := get("search")
	expanded, hasExpanded := get("expanded")
	expandAllRaw, hasExpandAll := get("expand_all")
	if !hasSearch && !hasExpanded && !hasExpandAll {
		return services.ViewState{}, false, nil
	}

	expandAll := false
	if hasExpandAll {
		v, err := parseBool(expandAllRaw)
		if err != nil {
			return services.ViewState{}, false, errors.New("expand_all must be a boolean")
		}
		expandAll = v
	}

	var vs services.ViewState
	if expandAll {
		vs = c.hierarchy.AllExpanded(term)
	} else {
		vs = services.NewViewState()
		vs.SearchTerm = term
	}
	for _, id := range strings.Split(expanded, ",") {
		if id = strings.TrimSpace(id); id != "" {
			vs.Expanded[id] = true
		}
	}
	return vs, true, nil
}

func (c *HierarchyAPIController) GetView(w http.ResponseWriter, r *http.Request) {
	_ = ensureRequestID(r)
	vs := c.hierarchy.ViewState()
	type viewResponse struct {
		Expanded   []string `json:"expanded"`
		SearchTerm string   `json:"search_term"`
	}
	writeJSON(w, http.StatusOK, viewResponse{Expanded: vs.ExpandedIDs(), SearchTerm: vs.SearchTerm})
}

type searchRequest struct {
	Term string `json:"term"`
}

func (c *HierarchyAPIController) SetSearch(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	var req searchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	c.hierarchy.SetSearchTerm(req.Term)
	vs := c.hierarchy.ViewState()
	writeJSON(w, http.StatusOK, mappers.ProjectionToTree(c.hierarchy.Project(vs), vs, ""))
}

func (c *HierarchyAPIController) GetStats(w http.ResponseWriter, r *http.Request) {
	_ = ensureRequestID(r)
	writeJSON(w, http.StatusOK, c.hierarchy.Stats())
}

func (c *HierarchyAPIController) ListNodes(w http.ResponseWriter, r *http.Request) {
	_ = ensureRequestID(r)
	type listNodesResponse struct {
		Nodes []position.Node `json:"nodes"`
	}
	writeJSON(w, http.StatusOK, listNodesResponse{Nodes: c.hierarchy.Nodes()})
}

type nodeResponse struct {
	Node                 position.Node   `json:"node"`
	Ancestors            []position.Node `json:"ancestors"`
	SubtreeEmployeeCount int             `json:"subtree_employee_count"`
}

func (c *HierarchyAPIController) GetNode(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	id := mux.Vars(r)["id"]

	n, err := c.hierarchy.Node(id)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	ancestors, err := c.hierarchy.Ancestors(id)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	total, err := c.hierarchy.SubtreeEmployeeCount(id)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	if ancestors == nil {
		ancestors = []position.Node{}
	}
	writeJSON(w, http.StatusOK, nodeResponse{Node: n, Ancestors: ancestors, SubtreeEmployeeCount: total})
}

type createNodeRequest struct {
	position.Input
	ParentID string `json:"parent_id"`
}

func (c *HierarchyAPIController) CreateNode(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	var req createNodeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	n, err := c.hierarchy.AddNode(req.Input, strings.TrimSpace(req.ParentID))
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (c *HierarchyAPIController) UpdateNode(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	raw, err := readBody(r.Body)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	id := mux.Vars(r)["id"]
	var n position.Node
	if isJSONPatch(r) {
		n, err = c.hierarchy.PatchNode(id, raw)
	} else {
		var patch position.Patch
		if patch, err = position.ParsePatch(raw); err == nil {
			n, err = c.hierarchy.UpdateNode(id, patch)
		}
	}
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type moveNodeRequest struct {
	NewParentID string `json:"new_parent_id"`
}

// MoveNode re-parents a node. An empty new_parent_id promotes it to a root.
func (c *HierarchyAPIController) MoveNode(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	var req moveNodeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	n, err := c.hierarchy.MoveNode(mux.Vars(r)["id"], strings.TrimSpace(req.NewParentID))
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (c *HierarchyAPIController) DeleteNode(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)
	cascade := c.defaultCascade
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		v, err := parseBool(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_QUERY", "cascade must be a boolean")
			return
		}
		cascade = v
	}
	removed, err := c.hierarchy.RemoveNode(mux.Vars(r)["id"], cascade)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	type deleteNodeResponse struct {
		Removed []string `json:"removed"`
		Cascade bool     `json:"cascade"`
	}
	writeJSON(w, http.StatusOK, deleteNodeResponse{Removed: removed, Cascade: cascade})
}

func (c *HierarchyAPIController) ToggleNode(w http.ResponseWriter, r *http.Request) {
	_ = ensureRequestID(r)
	id := mux.Vars(r)["id"]
	type toggleResponse struct {
		ID       string `json:"id"`
		Expanded bool   `json:"expanded"`
	}
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Expanded: c.hierarchy.ToggleExpanded(id)})
}

func (c *HierarchyAPIController) writeServiceError(w http.ResponseWriter, requestID string, err error) {
	var validation *position.ValidationError
	switch {
	case position.IsNotFound(err):
		writeAPIError(w, http.StatusNotFound, requestID, "HIERARCHY_NODE_NOT_FOUND", err.Error())
	case position.IsCycle(err):
		writeAPIError(w, http.StatusConflict, requestID, "HIERARCHY_CYCLE", err.Error())
	case errors.As(err, &validation):
		var extra map[string]string
		if validation.Field != "" {
			extra = map[string]string{"field": validation.Field}
		}
		writeAPIErrorMeta(w, http.StatusUnprocessableEntity, requestID, "HIERARCHY_VALIDATION", err.Error(), extra)
	default:
		c.log.WithError(err).WithField("request_id", requestID).Error("hierarchy request failed")
		writeAPIError(w, http.StatusInternalServerError, requestID, "HIERARCHY_INTERNAL", err.Error())
	}
}

func isJSONPatch(r *http.Request) bool {
	ct, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	return strings.EqualFold(strings.TrimSpace(ct), position.JSONPatchContentType)
}

func ensureRequestID(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if v != "" {
		return v
	}
	v = uuid.NewString()
	r.Header.Set(RequestIDHeader, v)
	return v
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

func readBody(body io.ReadCloser) ([]byte, error) {
	defer func() { _ = body.Close() }()
	return io.ReadAll(io.LimitReader(body, maxBodyBytes))
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	writeAPIErrorMeta(w, status, requestID, code, message, nil)
}

func writeAPIErrorMeta(w http.ResponseWriter, status int, requestID, code, message string, meta map[string]string) {
	_ = httpapi.WriteError(w, status, requestID, code, message, meta)
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	_ = httpapi.WriteJSON(w, status, payload)
}
