package api

import (
	"context"
	"net/http"

	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/table"
	"github.com/gorilla/mux"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/catalogstore"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/pagination"
)

func parseWarehouseID(r *http.Request) (ident.WarehouseID, error) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		return ident.WarehouseID{}, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}
	return id, nil
}

func (h *handlers) listNamespaces(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = pageTokenFromQuery(r)

	var namespaces []ident.Namespace
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		namespaces, innerErr = tx.ListNamespaces(ctx, warehouseID)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, len(namespaces))
	for i, n := range namespaces {
		out[i] = n.Canonical()
	}
	writeJSON(w, http.StatusOK, withNextPageToken(map[string]any{"namespaces": out}, pagination.NextUnsupported))
}

// withNextPageToken adds the next-page-token field unless next signals the
// Unsupported state, which must be omitted from the response entirely
// (spec §6, NextPageToken.Omit()).
func withNextPageToken(body map[string]any, next pagination.NextPageToken) map[string]any {
	if !next.Omit() {
		body["next-page-token"] = next
	}
	return body
}

// pageTokenFromQuery reads the optional page_token query parameter into the
// three-state PageToken protocol (spec §6): absent if the parameter was not
// supplied at all, empty/present otherwise.
func pageTokenFromQuery(r *http.Request) pagination.PageToken {
	values := r.URL.Query()
	present := values.Has("page_token") || values.Has("pageToken")
	raw := values.Get("page_token")
	if raw == "" {
		raw = values.Get("pageToken")
	}
	return pagination.FromQueryParam(present, raw)
}

type createNamespaceRequest struct {
	Namespace  string            `json:"namespace"`
	Properties map[string]string `json:"properties,omitempty"`
}

func (h *handlers) createNamespace(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createNamespaceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	namespace := ident.ParseNamespace(req.Namespace)
	var id ident.NamespaceID
	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		id, innerErr = tx.CreateNamespace(ctx, warehouseID, namespace, req.Properties)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"namespace-id": id.String()})
}

func (h *handlers) dropNamespace(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	namespace := ident.ParseNamespace(mux.Vars(r)["namespace"])

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.DropNamespace(ctx, warehouseID, namespace)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listTables(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	namespace := ident.ParseNamespace(mux.Vars(r)["namespace"])
	includeStaged := r.URL.Query().Get("include_staged") == "true"
	_ = pageTokenFromQuery(r)

	var tables map[ident.TableID]ident.TableIdent
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		tables, innerErr = tx.ListTables(ctx, warehouseID, namespace, includeStaged)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, 0, len(tables))
	for id := range tables {
		out = append(out, id.String())
	}
	writeJSON(w, http.StatusOK, withNextPageToken(map[string]any{"table-ids": out}, pagination.NextUnsupported))
}

// createTableRequest mirrors the REST create_table payload: schema,
// partition spec and write order arrive as the real Iceberg metadata.json
// wire shapes and are unmarshaled directly into apache/iceberg-go's own
// types, so the metadata aggregate (tablemeta.NewAggregate) always builds
// from genuine library values rather than a hand-rolled substitute.
type createTableRequest struct {
	Name          string               `json:"name"`
	Location      string               `json:"location"`
	Schema        *iceberg.Schema      `json:"schema"`
	PartitionSpec *iceberg.PartitionSpec `json:"partition-spec,omitempty"`
	WriteOrder    *table.SortOrder     `json:"write-order,omitempty"`
	Properties    map[string]string    `json:"properties,omitempty"`
	StageCreate   bool                 `json:"stage-create,omitempty"`
}

func (h *handlers) createTable(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	namespace := ident.ParseNamespace(mux.Vars(r)["namespace"])

	var req createTableRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	var tableID ident.TableID
	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		nsID, ok, innerErr := tx.ResolveNamespace(ctx, warehouseID, namespace)
		if innerErr != nil {
			return innerErr
		}
		if !ok {
			return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchNamespace, "no such namespace")
		}
		tableID, innerErr = tx.CreateTable(ctx, nsID, req.Name, catalogstore.CreateTableRequest{
			Location:      req.Location,
			Schema:        req.Schema,
			PartitionSpec: req.PartitionSpec,
			WriteOrder:    req.WriteOrder,
			Properties:    req.Properties,
			Committed:     !req.StageCreate,
		})
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"table-id": tableID.String()})
}

func (h *handlers) loadTable(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	namespace := ident.ParseNamespace(mux.Vars(r)["namespace"])
	name := mux.Vars(r)["table"]

	var row catalogstore.TableRow
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		nsID, ok, innerErr := tx.ResolveNamespace(ctx, warehouseID, namespace)
		if innerErr != nil {
			return innerErr
		}
		if !ok {
			return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchNamespace, "no such namespace")
		}
		row, innerErr = tx.LoadTable(ctx, nsID, name)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) dropTable(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tbl := ident.TableIdent{Namespace: ident.ParseNamespace(mux.Vars(r)["namespace"]), Name: mux.Vars(r)["table"]}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.DropTable(ctx, warehouseID, tbl)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameTableRequest struct {
	Source      ident.TableIdent `json:"source"`
	Destination ident.TableIdent `json:"destination"`
}

func (h *handlers) renameTable(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req renameTableRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.RenameTable(ctx, warehouseID, req.Source, req.Destination)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getByLocation(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, apperr.New(apperr.KindBadRequest, apperr.TypeTableIdentifierRequired, "path query parameter is required"))
		return
	}

	var row catalogstore.TableRow
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		row, innerErr = tx.GetByLocation(ctx, warehouseID, path)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}
