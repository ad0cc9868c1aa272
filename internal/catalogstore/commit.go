package catalogstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/secretstore"
	"github.com/icebase/catalogd/internal/storageprofile"
	"github.com/icebase/catalogd/internal/tablemeta"
)

// MaxCommitChanges is the reference bound on a single commit_transaction
// call (spec §4.3 step 1, "the reference bound is ~7 500 changes").
const MaxCommitChanges = 7500

// TableChange is one table's requirements and updates within a multi-table
// commit_transaction request.
type TableChange struct {
	Identifier   *ident.TableIdent
	Requirements []tablemeta.Requirement
	Updates      []tablemeta.Update
}

// CommitResult is the old and new metadata snapshot for one committed
// table, returned so the caller can hand the new metadata location, the
// warehouse's storage profile and secret handle, and the previous metadata
// snapshot back to the client (spec §4.3 step 7).
type CommitResult struct {
	TableID             ident.TableID         `json:"table-id"`
	OldMetadataLocation *string               `json:"old-metadata-location,omitempty"`
	OldMetadata         json.RawMessage       `json:"old-metadata,omitempty"`
	NewMetadataLocation string                `json:"new-metadata-location"`
	NewMetadata         json.RawMessage       `json:"new-metadata"`
	StorageProfile      storageprofile.Profile `json:"storage-profile"`
	SecretHandle        *secretstore.Handle    `json:"secret-handle,omitempty"`
}

// CommitTables implements C3 commit_transaction: the seven-step atomic
// multi-table commit. Every requirement and update is routed through the
// metadata aggregate machinery (tablemeta.NewFromMetadata, Update.Apply,
// Aggregate.Build); the AssignUuid and SetLocation "must equal current"
// guards live in those updates' own Apply methods (tablemeta/update.go).
func (t *Tx) CommitTables(ctx context.Context, warehouseID ident.WarehouseID, changes []TableChange) ([]CommitResult, error) {
	if len(changes) > MaxCommitChanges {
		return nil, apperr.New(apperr.KindBadRequest, apperr.TypeTooManyTablesForCommit,
			fmt.Sprintf("commit of %d changes exceeds the limit of %d", len(changes), MaxCommitChanges))
	}

	idents := make([]ident.TableIdent, len(changes))
	for i, c := range changes {
		if c.Identifier == nil {
			return nil, apperr.New(apperr.KindBadRequest, apperr.TypeTableIdentifierRequired,
				"every change in a commit must name a table identifier")
		}
		idents[i] = *c.Identifier
	}

	resolved, err := t.ResolveTablesBatch(ctx, warehouseID, idents, true)
	if err != nil {
		return nil, err
	}

	rows := make([]TableRow, len(changes))
	for i, r := range resolved {
		if r.ID == nil {
			return nil, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError,
				fmt.Sprintf("no such table: %s", r.Ident.String()))
		}
		row, err := t.GetByID(ctx, *r.ID)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	// Step 2 also joins the warehouse's storage profile and secret handle,
	// per spec §4.2 load_table/§4.3 step 7 — every change in a single
	// commit_transaction call shares one warehouse, so one fetch suffices.
	warehouse, err := t.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	metadataRoot, err := warehouse.Profile.MetadataRoot()
	if err != nil {
		return nil, wrapInternal("commit_transaction: storage profile root", err)
	}

	results := make([]CommitResult, len(changes))
	for i, change := range changes {
		row := rows[i]
		exists := !row.Staged()

		var current *tablemeta.Metadata
		if len(row.Metadata) > 0 {
			current = &tablemeta.Metadata{}
			if err := json.Unmarshal(row.Metadata, current); err != nil {
				return nil, wrapInternal("commit_transaction: decode metadata", err)
			}
		}

		for _, req := range change.Requirements {
			if err := req.Assert(current, exists); err != nil {
				return nil, err
			}
		}

		// Invariant 5: the stored document's own table-uuid and location
		// must already agree with the row's real identity before any
		// update is folded in — a mismatch here means the row was written
		// outside create_table's aggregate path and is never silently
		// tolerated.
		if current != nil {
			if current.UUID != "" && current.UUID != row.ID.String() {
				return nil, apperr.New(apperr.KindInternal, apperr.TypeCommitTableUpdateError,
					fmt.Sprintf("metadata table-uuid %s does not match table id %s", current.UUID, row.ID.String()))
			}
			if current.Location != "" && current.Location != row.TableLocation {
				return nil, apperr.New(apperr.KindInternal, apperr.TypeCommitTableUpdateError,
					fmt.Sprintf("metadata location %s does not match table_location %s", current.Location, row.TableLocation))
			}
			if metadataRoot != "" && row.TableLocation != "" {
				if len(row.TableLocation) < len(metadataRoot) || row.TableLocation[:len(metadataRoot)] != metadataRoot {
					return nil, apperr.New(apperr.KindInternal, apperr.TypeCommitTableUpdateError,
						fmt.Sprintf("table location %s is not rooted under the warehouse's storage profile %s", row.TableLocation, metadataRoot))
				}
			}
		}

		var agg *tablemeta.Aggregate
		if current != nil {
			agg = tablemeta.NewFromMetadata(current)
		} else {
			agg = tablemeta.NewAggregate(nil, row.TableLocation, row.ID.String())
		}

		for _, upd := range change.Updates {
			if err := upd.Apply(agg, current); err != nil {
				return nil, err
			}
		}

		built, err := agg.Build()
		if err != nil {
			return nil, wrapInternal("commit_transaction: build metadata", err)
		}
		built.Metadata.LastUpdatedMs = time.Now().UnixMilli()

		newMetaLoc, err := tablemeta.NewMetadataFileLocation(row.TableLocation)
		if err != nil {
			return nil, wrapInternal("commit_transaction: new metadata location", err)
		}

		newMetadata, err := json.Marshal(built.Metadata)
		if err != nil {
			return nil, wrapInternal("commit_transaction: encode metadata", err)
		}

		res, err := t.exec(ctx, `UPDATE catalog_table SET metadata = ?, metadata_location = ? WHERE table_id = ?`,
			newMetadata, newMetaLoc, row.ID.String())
		if err != nil {
			return nil, wrapInternal("commit_transaction: persist", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, wrapInternal("commit_transaction: rows affected", err)
		}
		if n != 1 {
			return nil, apperr.New(apperr.KindInternal, apperr.TypeCommitTableUpdateError,
				fmt.Sprintf("commit update affected %d rows for table %s, expected 1", n, row.ID.String()))
		}

		results[i] = CommitResult{
			TableID:             row.ID,
			OldMetadataLocation: row.MetadataLocation,
			OldMetadata:         row.Metadata,
			NewMetadataLocation: newMetaLoc,
			NewMetadata:         newMetadata,
			StorageProfile:      warehouse.Profile,
			SecretHandle:        warehouse.SecretID,
		}
	}

	return results, nil
}
