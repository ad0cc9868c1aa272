package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/secretstore"
	"github.com/icebase/catalogd/internal/storageprofile"
)

// WarehouseRow is the full persisted warehouse row, including its storage
// profile and (if present) the handle to its credential in the secret store.
type WarehouseRow struct {
	ID        ident.WarehouseID       `json:"warehouse-id"`
	ProjectID ident.ProjectID         `json:"project-id"`
	Name      string                  `json:"name"`
	Profile   storageprofile.Profile  `json:"storage-profile"`
	SecretID  *secretstore.Handle     `json:"secret-id,omitempty"`
	Active    bool                    `json:"active"`
}

// CreateWarehouse implements C4 create_warehouse: validate, persist the
// credential (if any), insert the warehouse row — all in the caller's
// write transaction, so a failure at any step leaves nothing behind.
func (t *Tx) CreateWarehouse(ctx context.Context, secrets secretstore.Store, projectID ident.ProjectID, name string, profile storageprofile.Profile, cred *storageprofile.Credential) (ident.WarehouseID, error) {
	if err := storageprofile.Validate(ctx, profile, cred); err != nil {
		return ident.WarehouseID{}, apperr.Wrap(apperr.KindBadRequest, apperr.TypeInvalidStorageProfile, "invalid storage profile or credential", err)
	}

	var secretID *secretstore.Handle
	if cred != nil {
		blob, err := json.Marshal(cred)
		if err != nil {
			return ident.WarehouseID{}, wrapInternal("create_warehouse: marshal credential", err)
		}
		handle, err := secrets.Create(ctx, blob)
		if err != nil {
			return ident.WarehouseID{}, apperr.Wrap(apperr.KindInternal, apperr.TypeSecretStoreError, "failed to persist credential", err)
		}
		secretID = &handle
	}
	// The secret store sits outside the SQL transaction, so a credential
	// persisted above is removed again if a later step fails.
	discardSecret := func() {
		if secretID != nil {
			_ = secrets.Delete(ctx, *secretID)
		}
	}

	id, err := ident.NewWarehouseID()
	if err != nil {
		discardSecret()
		return ident.WarehouseID{}, wrapInternal("create_warehouse: new id", err)
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		discardSecret()
		return ident.WarehouseID{}, wrapInternal("create_warehouse: marshal profile", err)
	}

	var secretIDArg any
	if secretID != nil {
		secretIDArg = string(*secretID)
	}

	_, err = t.exec(ctx, `INSERT INTO warehouse (warehouse_id, project_id, warehouse_name, storage_profile, storage_secret_id, status)
		VALUES (?, ?, ?, ?, ?, 'active')`, id.String(), projectID.String(), name, profileJSON, secretIDArg)
	if err != nil {
		discardSecret()
		if isDuplicateKeyError(err) {
			return ident.WarehouseID{}, apperr.New(apperr.KindConflict, apperr.TypeWarehouseNameConflict, "warehouse name already in use for this project")
		}
		return ident.WarehouseID{}, wrapInternal("create_warehouse: insert", err)
	}
	return id, nil
}

// GetWarehouse implements C4 get_warehouse.
func (t *Tx) GetWarehouse(ctx context.Context, id ident.WarehouseID) (WarehouseRow, error) {
	row := WarehouseRow{ID: id}
	var projectIDStr, status string
	var profileJSON []byte
	var secretID sql.NullString
	err := t.queryRow(ctx, func(r *sql.Row) error {
		return r.Scan(&projectIDStr, &row.Name, &profileJSON, &secretID, &status)
	}, `SELECT project_id, warehouse_name, storage_profile, storage_secret_id, status FROM warehouse WHERE warehouse_id = ?`,
		id.String())
	if err != nil {
		return WarehouseRow{}, wrapNotFound("get_warehouse", err,
			apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
	}

	projectID, err := ident.ParseProjectID(projectIDStr)
	if err != nil {
		return WarehouseRow{}, wrapInternal("get_warehouse: parse uuid", err)
	}
	row.ProjectID = projectID
	row.Active = status == "active"

	if err := json.Unmarshal(profileJSON, &row.Profile); err != nil {
		return WarehouseRow{}, wrapInternal("get_warehouse: unmarshal profile", err)
	}
	if secretID.Valid {
		h := secretstore.Handle(secretID.String)
		row.SecretID = &h
	}
	return row, nil
}

// DeleteWarehouse implements C4 delete_warehouse. Deleting the credential
// from the secret store is best-effort, matching update_credential's
// cleanup semantics (spec SUPPLEMENTED OPERATIONS).
func (t *Tx) DeleteWarehouse(ctx context.Context, secrets secretstore.Store, id ident.WarehouseID) error {
	row, err := t.GetWarehouse(ctx, id)
	if err != nil {
		return err
	}

	res, err := t.exec(ctx, `DELETE FROM warehouse WHERE warehouse_id = ?`, id.String())
	if err != nil {
		return wrapInternal("delete_warehouse", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("delete_warehouse: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}

	if row.SecretID != nil {
		_ = secrets.Delete(ctx, *row.SecretID)
	}
	return nil
}

// RenameWarehouse implements C4 rename_warehouse.
func (t *Tx) RenameWarehouse(ctx context.Context, id ident.WarehouseID, newName string) error {
	res, err := t.exec(ctx, `UPDATE warehouse SET warehouse_name = ? WHERE warehouse_id = ?`, newName, id.String())
	if err != nil {
		if isDuplicateKeyError(err) {
			return apperr.New(apperr.KindConflict, apperr.TypeWarehouseNameConflict, "warehouse name already in use for this project")
		}
		return wrapInternal("rename_warehouse", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("rename_warehouse: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}
	return nil
}

// ActivateWarehouse and DeactivateWarehouse implement the supplemented
// warehouse-status operations (SPEC_FULL.md §11, grounded on the original
// Rust source's stubbed activate/deactivate entry points).
func (t *Tx) ActivateWarehouse(ctx context.Context, id ident.WarehouseID) error {
	return t.setWarehouseStatus(ctx, id, "active")
}

func (t *Tx) DeactivateWarehouse(ctx context.Context, id ident.WarehouseID) error {
	return t.setWarehouseStatus(ctx, id, "inactive")
}

func (t *Tx) setWarehouseStatus(ctx context.Context, id ident.WarehouseID, status string) error {
	res, err := t.exec(ctx, `UPDATE warehouse SET status = ? WHERE warehouse_id = ?`, status, id.String())
	if err != nil {
		return wrapInternal("set_warehouse_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("set_warehouse_status: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}
	return nil
}

// UpdateStorage implements the supplemented update_storage operation: the
// new profile replaces the old one wholesale; any existing credential is
// NOT carried over (SPEC_FULL.md §11 — the caller must follow up with
// UpdateCredential if the new storage still needs one).
func (t *Tx) UpdateStorage(ctx context.Context, id ident.WarehouseID, profile storageprofile.Profile) error {
	if err := storageprofile.Validate(ctx, profile, nil); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, apperr.TypeInvalidStorageProfile, "invalid storage profile", err)
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return wrapInternal("update_storage: marshal profile", err)
	}

	res, err := t.exec(ctx, `UPDATE warehouse SET storage_profile = ?, storage_secret_id = NULL WHERE warehouse_id = ?`,
		profileJSON, id.String())
	if err != nil {
		return wrapInternal("update_storage", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("update_storage: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}
	return nil
}

// UpdateCredential implements the supplemented update_credential operation.
// A nil cred clears the handle and best-effort deletes the old secret; a
// present cred is validated against the warehouse's current profile,
// persisted, and swapped in, with the old secret again best-effort deleted
// (SPEC_FULL.md §11).
func (t *Tx) UpdateCredential(ctx context.Context, secrets secretstore.Store, id ident.WarehouseID, cred *storageprofile.Credential) error {
	row, err := t.GetWarehouse(ctx, id)
	if err != nil {
		return err
	}

	var newSecretID *secretstore.Handle
	if cred != nil {
		if err := storageprofile.Validate(ctx, row.Profile, cred); err != nil {
			return apperr.Wrap(apperr.KindBadRequest, apperr.TypeInvalidCredential, "invalid credential for current storage profile", err)
		}
		blob, err := json.Marshal(cred)
		if err != nil {
			return wrapInternal("update_credential: marshal credential", err)
		}
		handle, err := secrets.Create(ctx, blob)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, apperr.TypeSecretStoreError, "failed to persist credential", err)
		}
		newSecretID = &handle
	}

	var secretIDArg any
	if newSecretID != nil {
		secretIDArg = string(*newSecretID)
	}
	res, err := t.exec(ctx, `UPDATE warehouse SET storage_secret_id = ? WHERE warehouse_id = ?`, secretIDArg, id.String())
	if err != nil {
		return wrapInternal("update_credential", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("update_credential: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse")
	}

	if row.SecretID != nil {
		_ = secrets.Delete(ctx, *row.SecretID)
	}
	return nil
}
