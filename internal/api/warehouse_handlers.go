package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/catalogstore"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/pagination"
	"github.com/icebase/catalogd/internal/storageprofile"
)

func (h *handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	_ = pageTokenFromQuery(r)

	var projects []ident.ProjectID
	err := h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		projects, innerErr = tx.ListProjects(ctx)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.String()
	}
	writeJSON(w, http.StatusOK, withNextPageToken(map[string]any{"projects": ids}, pagination.NextUnsupported))
}

func (h *handlers) listWarehouses(w http.ResponseWriter, r *http.Request) {
	projectID, err := ident.ParseProjectID(mux.Vars(r)["project"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, apperr.TypeNoSuchWarehouse, "invalid project id"))
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	_ = pageTokenFromQuery(r)

	var warehouses []catalogstore.WarehouseSummary
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		warehouses, innerErr = tx.ListWarehouses(ctx, projectID, includeInactive)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withNextPageToken(map[string]any{"warehouses": warehouses}, pagination.NextUnsupported))
}

type createWarehouseRequest struct {
	Name       string                     `json:"name"`
	Profile    storageprofile.Profile     `json:"storage-profile"`
	Credential *storageprofile.Credential `json:"credential,omitempty"`
}

func (h *handlers) createWarehouse(w http.ResponseWriter, r *http.Request) {
	projectID, err := ident.ParseProjectID(mux.Vars(r)["project"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindBadRequest, apperr.TypeInvalidStorageProfile, "invalid project id"))
		return
	}

	var req createWarehouseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	var id ident.WarehouseID
	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		id, innerErr = tx.CreateWarehouse(ctx, h.secrets, projectID, req.Name, req.Profile, req.Credential)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"warehouse-id": id.String()})
}

func (h *handlers) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}

	var row catalogstore.WarehouseRow
	err = h.store.RunInReadTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		row, innerErr = tx.GetWarehouse(ctx, id)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.DeleteWarehouse(ctx, h.secrets, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameWarehouseRequest struct {
	Name string `json:"name"`
}

func (h *handlers) renameWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}
	var req renameWarehouseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.RenameWarehouse(ctx, id, req.Name)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) activateWarehouse(w http.ResponseWriter, r *http.Request) {
	h.setWarehouseActive(w, r, true)
}

func (h *handlers) deactivateWarehouse(w http.ResponseWriter, r *http.Request) {
	h.setWarehouseActive(w, r, false)
}

func (h *handlers) setWarehouseActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		if active {
			return tx.ActivateWarehouse(ctx, id)
		}
		return tx.DeactivateWarehouse(ctx, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateStorage(w http.ResponseWriter, r *http.Request) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}
	var profile storageprofile.Profile
	if err := decodeBody(r, &profile); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.UpdateStorage(ctx, id, profile)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateCredential(w http.ResponseWriter, r *http.Request) {
	id, err := ident.ParseWarehouseID(mux.Vars(r)["warehouseId"])
	if err != nil {
		writeError(w, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
		return
	}
	var cred *storageprofile.Credential
	if r.ContentLength != 0 {
		cred = &storageprofile.Credential{}
		if err := decodeBody(r, cred); err != nil {
			writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
			return
		}
	}

	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		return tx.UpdateCredential(ctx, h.secrets, id, cred)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
