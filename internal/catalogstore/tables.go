package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/table"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/tablemeta"
)

// TableRow is the persisted row shape for a table or staged table
// reservation (spec §3: "staged vs. committed via a nullable
// metadata_location"). Field names are kebab-case on the wire (spec §6)
// since the row is serialized directly as an HTTP response body.
type TableRow struct {
	ID               ident.TableID    `json:"table-id"`
	NamespaceID      ident.NamespaceID `json:"namespace-id"`
	Name             string           `json:"name"`
	Metadata         json.RawMessage  `json:"metadata"`
	MetadataLocation *string          `json:"metadata-location,omitempty"`
	TableLocation    string           `json:"table-location"`
}

func (r TableRow) Staged() bool { return r.MetadataLocation == nil }

// CreateTableRequest carries the inputs create_table needs to build a
// brand-new table's metadata document via the metadata aggregate (spec
// §4.2): a required location and schema, plus the optional initial
// partition spec, write order, and properties installed as the new
// document's defaults.
type CreateTableRequest struct {
	Location      string
	Schema        *iceberg.Schema
	PartitionSpec *iceberg.PartitionSpec
	WriteOrder    *table.SortOrder
	Properties    map[string]string

	// Committed, when true, commits the table immediately instead of
	// staging it: metadata_location is populated right away rather than
	// left null.
	Committed bool
}

// CreateTable implements C2 create_table: upsert-over-staged. A staged
// existing row (metadata_location IS NULL) is overwritten, keeping its
// table_id; a committed existing row is a conflict. The table's UUID is
// always minted here and fed straight into the metadata aggregate's
// assign_uuid step, so the stored document's table-uuid and the row's
// table_id can never diverge (invariant 5).
func (t *Tx) CreateTable(ctx context.Context, namespaceID ident.NamespaceID, name string, req CreateTableRequest) (ident.TableID, error) {
	if req.Location == "" {
		return ident.TableID{}, apperr.New(apperr.KindConflict, apperr.TypeCreateTableLocationReq, "create_table requires a location")
	}
	if req.Schema == nil {
		return ident.TableID{}, apperr.New(apperr.KindBadRequest, apperr.TypeCreateTableSchemaReq, "create_table requires a schema")
	}

	var existingID, existingMetaLoc sql.NullString
	err := t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&existingID, &existingMetaLoc)
	}, `SELECT table_id, metadata_location FROM catalog_table WHERE namespace_id = ? AND table_name = ?`,
		namespaceID.String(), name)

	switch {
	case err == sql.ErrNoRows:
		id, genErr := ident.NewTableID()
		if genErr != nil {
			return ident.TableID{}, wrapInternal("create_table: new id", genErr)
		}
		metadata, metaLocArg, buildErr := buildInitialMetadata(id, req)
		if buildErr != nil {
			return ident.TableID{}, buildErr
		}
		_, err = t.exec(ctx, `INSERT INTO catalog_table (table_id, namespace_id, table_name, metadata, metadata_location, table_location)
			VALUES (?, ?, ?, ?, ?, ?)`, id.String(), namespaceID.String(), name, metadata, metaLocArg, req.Location)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ident.TableID{}, apperr.New(apperr.KindConflict, apperr.TypeTableAlreadyExists, "table already exists")
			}
			return ident.TableID{}, wrapInternal("create_table: insert", err)
		}
		return id, nil

	case err != nil:
		return ident.TableID{}, wrapInternal("create_table: lookup", err)

	case existingMetaLoc.Valid:
		return ident.TableID{}, apperr.New(apperr.KindConflict, apperr.TypeTableAlreadyExists, "table already exists")

	default:
		// Existing row is staged: overwrite in place, keeping its table_id,
		// and rebuild the metadata document around that same id.
		id, err := ident.ParseTableID(existingID.String)
		if err != nil {
			return ident.TableID{}, wrapInternal("create_table: parse uuid", err)
		}
		metadata, metaLocArg, buildErr := buildInitialMetadata(id, req)
		if buildErr != nil {
			return ident.TableID{}, buildErr
		}
		_, err = t.exec(ctx, `UPDATE catalog_table SET metadata = ?, metadata_location = ?, table_location = ? WHERE table_id = ?`,
			metadata, metaLocArg, req.Location, id.String())
		if err != nil {
			return ident.TableID{}, wrapInternal("create_table: overwrite staged", err)
		}
		return id, nil
	}
}

// buildInitialMetadata runs the metadata aggregate's brand-new-table path
// (spec §4.2, spec §9 "assign_uuid... build"): schema, location and id are
// required inputs; partition spec, write order and properties are folded
// in as the document's defaults when the caller supplies them.
func buildInitialMetadata(id ident.TableID, req CreateTableRequest) (json.RawMessage, any, error) {
	agg := tablemeta.NewAggregate(req.Schema, req.Location, id.String())

	if req.PartitionSpec != nil {
		specID := agg.AddPartitionSpec(*req.PartitionSpec)
		if err := agg.SetDefaultPartitionSpec(specID); err != nil {
			return nil, nil, wrapInternal("create_table: default partition spec", err)
		}
	}
	if req.WriteOrder != nil {
		orderID := agg.AddSortOrder(*req.WriteOrder)
		if err := agg.SetDefaultSortOrder(orderID); err != nil {
			return nil, nil, wrapInternal("create_table: default sort order", err)
		}
	}
	if len(req.Properties) > 0 {
		agg.SetProperties(req.Properties)
	}

	built, err := agg.Build()
	if err != nil {
		return nil, nil, wrapInternal("create_table: build metadata", err)
	}

	metadata, err := json.Marshal(built.Metadata)
	if err != nil {
		return nil, nil, wrapInternal("create_table: encode metadata", err)
	}

	var metaLocArg any
	if req.Committed {
		loc, err := tablemeta.NewMetadataFileLocation(req.Location)
		if err != nil {
			return nil, nil, wrapInternal("create_table: metadata location", err)
		}
		metaLocArg = loc
	}
	return metadata, metaLocArg, nil
}

// LoadTable implements C2 load_table: committed tables only.
func (t *Tx) LoadTable(ctx context.Context, namespaceID ident.NamespaceID, name string) (TableRow, error) {
	row := TableRow{NamespaceID: namespaceID, Name: name}
	var idStr string
	var metaLoc sql.NullString
	err := t.queryRow(ctx, func(r *sql.Row) error {
		return r.Scan(&idStr, &row.Metadata, &metaLoc, &row.TableLocation)
	}, `SELECT table_id, metadata, metadata_location, table_location FROM catalog_table
		WHERE namespace_id = ? AND table_name = ?`, namespaceID.String(), name)
	if err != nil {
		return TableRow{}, wrapNotFound("load_table", err,
			apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "no such table"))
	}
	if !metaLoc.Valid {
		return TableRow{}, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "table is staged, not committed")
	}
	id, err := ident.ParseTableID(idStr)
	if err != nil {
		return TableRow{}, wrapInternal("load_table: parse uuid", err)
	}
	row.ID = id
	row.MetadataLocation = &metaLoc.String
	return row, nil
}

// GetByID fetches a table row (staged or committed) by UUID.
func (t *Tx) GetByID(ctx context.Context, id ident.TableID) (TableRow, error) {
	row := TableRow{ID: id}
	var nsIDStr string
	var metaLoc sql.NullString
	err := t.queryRow(ctx, func(r *sql.Row) error {
		return r.Scan(&nsIDStr, &row.Name, &row.Metadata, &metaLoc, &row.TableLocation)
	}, `SELECT namespace_id, table_name, metadata, metadata_location, table_location FROM catalog_table WHERE table_id = ?`,
		id.String())
	if err != nil {
		return TableRow{}, wrapNotFound("get_by_id", err,
			apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "no such table"))
	}
	nsID, err := ident.ParseNamespaceID(nsIDStr)
	if err != nil {
		return TableRow{}, wrapInternal("get_by_id: parse uuid", err)
	}
	row.NamespaceID = nsID
	if metaLoc.Valid {
		row.MetadataLocation = &metaLoc.String
	}
	return row, nil
}

// GetByLocation implements C2 get_by_location: a prefix match on
// table_location, expecting exactly one match (invariant: "location-prefix
// lookup uniqueness must never be ambiguous").
func (t *Tx) GetByLocation(ctx context.Context, warehouseID ident.WarehouseID, path string) (TableRow, error) {
	rows, err := t.query(ctx, `SELECT ct.table_id, ct.namespace_id, ct.table_name, ct.metadata, ct.metadata_location, ct.table_location
		FROM catalog_table ct
		JOIN namespace ns ON ns.namespace_id = ct.namespace_id
		WHERE ns.warehouse_id = ?
		  AND ? LIKE CONCAT(ct.table_location, '%')
		  AND LENGTH(ct.table_location) <= LENGTH(?)`, warehouseID.String(), path, path)
	if err != nil {
		return TableRow{}, wrapInternal("get_by_location", err)
	}
	defer rows.Close()

	var matches []TableRow
	for rows.Next() {
		var idStr, nsIDStr string
		var row TableRow
		var metaLoc sql.NullString
		if err := rows.Scan(&idStr, &nsIDStr, &row.Name, &row.Metadata, &metaLoc, &row.TableLocation); err != nil {
			return TableRow{}, wrapInternal("get_by_location: scan", err)
		}
		id, err := ident.ParseTableID(idStr)
		if err != nil {
			return TableRow{}, wrapInternal("get_by_location: parse table uuid", err)
		}
		nsID, err := ident.ParseNamespaceID(nsIDStr)
		if err != nil {
			return TableRow{}, wrapInternal("get_by_location: parse ns uuid", err)
		}
		row.ID, row.NamespaceID = id, nsID
		if metaLoc.Valid {
			row.MetadataLocation = &metaLoc.String
		}
		matches = append(matches, row)
	}
	if err := rows.Err(); err != nil {
		return TableRow{}, wrapInternal("get_by_location: rows", err)
	}

	if len(matches) == 0 {
		return TableRow{}, apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "no table at location")
	}
	if len(matches) > 1 {
		return TableRow{}, apperr.New(apperr.KindInternal, apperr.TypeCommitTableUpdateError, "ambiguous location-prefix match")
	}
	return matches[0], nil
}

// RenameTable implements C2 rename_table, covering both the same-namespace
// and cross-namespace paths. Cross-namespace renames collapse a missing
// destination namespace and a missing source table into one error, per
// spec §4.2.
func (t *Tx) RenameTable(ctx context.Context, warehouseID ident.WarehouseID, from ident.TableIdent, to ident.TableIdent) error {
	if from.Namespace.Equal(to.Namespace) {
		srcNsID, ok, err := t.ResolveNamespace(ctx, warehouseID, from.Namespace)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindNotFound, apperr.TypeRenameTableIdNotFound, "source table not found")
		}
		res, err := t.exec(ctx, `UPDATE catalog_table SET table_name = ? WHERE namespace_id = ? AND table_name = ?`,
			to.Name, srcNsID.String(), from.Name)
		if err != nil {
			if isDuplicateKeyError(err) {
				return apperr.New(apperr.KindConflict, apperr.TypeTableAlreadyExists, "destination table already exists")
			}
			return wrapInternal("rename_table: same namespace", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapInternal("rename_table: rows affected", err)
		}
		if n == 0 {
			return apperr.New(apperr.KindNotFound, apperr.TypeRenameTableIdNotFound, "source table not found")
		}
		return nil
	}

	srcNsID, srcOK, err := t.ResolveNamespace(ctx, warehouseID, from.Namespace)
	if err != nil {
		return err
	}
	dstNsID, dstOK, err := t.ResolveNamespace(ctx, warehouseID, to.Namespace)
	if err != nil {
		return err
	}
	if !srcOK || !dstOK {
		return apperr.New(apperr.KindNotFound, apperr.TypeRenameTableIdOrNsNotFound, "source table or destination namespace not found")
	}

	res, err := t.exec(ctx, `UPDATE catalog_table SET namespace_id = ?, table_name = ? WHERE namespace_id = ? AND table_name = ?`,
		dstNsID.String(), to.Name, srcNsID.String(), from.Name)
	if err != nil {
		if isDuplicateKeyError(err) {
			return apperr.New(apperr.KindConflict, apperr.TypeTableAlreadyExists, "destination table already exists")
		}
		return wrapInternal("rename_table: cross namespace", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("rename_table: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeRenameTableIdOrNsNotFound, "source table or destination namespace not found")
	}
	return nil
}

// DropTable implements C2 drop_table: a hard delete, gated on the
// warehouse being active (open question 2 — see DESIGN.md for the
// hard-vs-soft-delete decision).
func (t *Tx) DropTable(ctx context.Context, warehouseID ident.WarehouseID, tbl ident.TableIdent) error {
	if err := t.assertWarehouseActive(ctx, warehouseID); err != nil {
		return err
	}

	nsID, ok, err := t.ResolveNamespace(ctx, warehouseID, tbl.Namespace)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "no such table")
	}

	res, err := t.exec(ctx, `DELETE FROM catalog_table WHERE namespace_id = ? AND table_name = ?`, nsID.String(), tbl.Name)
	if err != nil {
		return wrapInternal("drop_table", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("drop_table: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchTableError, "no such table")
	}
	return nil
}
