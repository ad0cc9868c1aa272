// Package api exposes the catalog's component operations over HTTP,
// following the protocol's REST surface (spec §6, "External Interfaces").
// Routing uses gorilla/mux, grounded on the pack's juju-juju example, in
// place of the donor's own hand-rolled net/http mux (the donor's RPC
// transport is a bespoke line-oriented protocol, not a REST surface, so
// its shape doesn't generalize here).
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/catalogstore"
	"github.com/icebase/catalogd/internal/secretstore"
)

// NewRouter builds the catalog's HTTP handler.
func NewRouter(store *catalogstore.Store, secrets secretstore.Store) http.Handler {
	h := &handlers{store: store, secrets: secrets}
	r := mux.NewRouter()

	r.HandleFunc("/v1/projects", h.listProjects).Methods(http.MethodGet)

	r.HandleFunc("/v1/projects/{project}/warehouses", h.listWarehouses).Methods(http.MethodGet)
	r.HandleFunc("/v1/projects/{project}/warehouses", h.createWarehouse).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}", h.getWarehouse).Methods(http.MethodGet)
	r.HandleFunc("/v1/warehouses/{warehouseId}", h.deleteWarehouse).Methods(http.MethodDelete)
	r.HandleFunc("/v1/warehouses/{warehouseId}/rename", h.renameWarehouse).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/activate", h.activateWarehouse).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/deactivate", h.deactivateWarehouse).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/storage", h.updateStorage).Methods(http.MethodPut)
	r.HandleFunc("/v1/warehouses/{warehouseId}/credential", h.updateCredential).Methods(http.MethodPut)

	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces", h.listNamespaces).Methods(http.MethodGet)
	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces", h.createNamespace).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces/{namespace}", h.dropNamespace).Methods(http.MethodDelete)

	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces/{namespace}/tables", h.listTables).Methods(http.MethodGet)
	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces/{namespace}/tables", h.createTable).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces/{namespace}/tables/{table}", h.loadTable).Methods(http.MethodGet)
	r.HandleFunc("/v1/warehouses/{warehouseId}/namespaces/{namespace}/tables/{table}", h.dropTable).Methods(http.MethodDelete)
	r.HandleFunc("/v1/warehouses/{warehouseId}/tables/rename", h.renameTable).Methods(http.MethodPost)
	r.HandleFunc("/v1/warehouses/{warehouseId}/table-by-location", h.getByLocation).Methods(http.MethodGet)
	r.HandleFunc("/v1/warehouses/{warehouseId}/transactions/commit", h.commitTransaction).Methods(http.MethodPost)

	return r
}

type handlers struct {
	store   *catalogstore.Store
	secrets secretstore.Store
}

// errorEnvelope is the wire shape every error response takes (spec §7).
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(apperr.KindInternal, "InternalServerError", "unexpected error", err)
	}
	var env errorEnvelope
	env.Error.Code = appErr.Kind.HTTPStatus()
	env.Error.Message = appErr.Message
	env.Error.Type = appErr.Type
	writeJSON(w, env.Error.Code, env)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
