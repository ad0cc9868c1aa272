package catalogstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
)

// MaxBatchParameters is the reference bound on resolve_tables_batch per
// spec §4.1 ("the reference bound is ~15 000 pairs").
const MaxBatchParameters = 15000

// ResolveTable implements C1 resolve_table: returns the table's UUID if a
// row exists under an active warehouse, or (zero, false, nil) if absent —
// resolution never fails on "not found", only on backend errors.
func (t *Tx) ResolveTable(ctx context.Context, warehouseID ident.WarehouseID, tbl ident.TableIdent, includeStaged bool) (ident.TableID, bool, error) {
	query := `SELECT ct.table_id FROM catalog_table ct
		JOIN namespace ns ON ns.namespace_id = ct.namespace_id
		JOIN warehouse w ON w.warehouse_id = ns.warehouse_id
		WHERE w.warehouse_id = ? AND w.status = 'active'
		  AND ns.namespace_name_hash = ? AND ct.table_name = ?`
	if !includeStaged {
		query += ` AND ct.metadata_location IS NOT NULL`
	}

	var idStr string
	err := t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&idStr)
	}, query, warehouseID.String(), namespaceHash(tbl.Namespace.Canonical()), tbl.Name)

	if err != nil {
		if err == sql.ErrNoRows {
			return ident.TableID{}, false, nil
		}
		return ident.TableID{}, false, wrapInternal("resolve_table", err)
	}

	id, err := ident.ParseTableID(idStr)
	if err != nil {
		return ident.TableID{}, false, wrapInternal("resolve_table: parse uuid", err)
	}
	return id, true, nil
}

// ResolvedTable pairs a requested identifier with its UUID, or nil if the
// identifier names no table under the warehouse. Namespace is a slice, so
// it cannot back a map key directly — callers that need O(1) lookup should
// index by tbl.String().
type ResolvedTable struct {
	Ident ident.TableIdent
	ID    *ident.TableID
}

// ResolveTablesBatch implements C1 resolve_tables_batch: every requested
// identifier appears in the result, paired with its UUID or nil if absent.
func (t *Tx) ResolveTablesBatch(ctx context.Context, warehouseID ident.WarehouseID, tbls []ident.TableIdent, includeStaged bool) ([]ResolvedTable, error) {
	if len(tbls) > MaxBatchParameters {
		return nil, apperr.New(apperr.KindBadRequest, apperr.TypeTooManyTables,
			fmt.Sprintf("batch of %d identifiers exceeds the limit of %d", len(tbls), MaxBatchParameters))
	}

	result := make([]ResolvedTable, len(tbls))
	for i, tbl := range tbls {
		id, ok, err := t.ResolveTable(ctx, warehouseID, tbl, includeStaged)
		if err != nil {
			return nil, err
		}
		r := ResolvedTable{Ident: tbl}
		if ok {
			idCopy := id
			r.ID = &idCopy
		}
		result[i] = r
	}
	return result, nil
}

// ListTables implements C1 list_tables.
func (t *Tx) ListTables(ctx context.Context, warehouseID ident.WarehouseID, namespace ident.Namespace, includeStaged bool) (map[ident.TableID]ident.TableIdent, error) {
	query := `SELECT ct.table_id, ct.table_name FROM catalog_table ct
		JOIN namespace ns ON ns.namespace_id = ct.namespace_id
		JOIN warehouse w ON w.warehouse_id = ns.warehouse_id
		WHERE w.warehouse_id = ? AND w.status = 'active' AND ns.namespace_name_hash = ?`
	if !includeStaged {
		query += ` AND ct.metadata_location IS NOT NULL`
	}

	rows, err := t.query(ctx, query, warehouseID.String(), namespaceHash(namespace.Canonical()))
	if err != nil {
		return nil, wrapInternal("list_tables", err)
	}
	defer rows.Close()

	out := make(map[ident.TableID]ident.TableIdent)
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, wrapInternal("list_tables: scan", err)
		}
		id, err := ident.ParseTableID(idStr)
		if err != nil {
			return nil, wrapInternal("list_tables: parse uuid", err)
		}
		out[id] = ident.TableIdent{Namespace: namespace, Name: name}
	}
	return out, wrapInternal("list_tables: rows", rows.Err())
}

// ResolveNamespace implements C1 resolve_namespace.
func (t *Tx) ResolveNamespace(ctx context.Context, warehouseID ident.WarehouseID, namespace ident.Namespace) (ident.NamespaceID, bool, error) {
	var idStr string
	err := t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&idStr)
	}, `SELECT ns.namespace_id FROM namespace ns
		JOIN warehouse w ON w.warehouse_id = ns.warehouse_id
		WHERE w.warehouse_id = ? AND w.status = 'active' AND ns.namespace_name_hash = ?`,
		warehouseID.String(), namespaceHash(namespace.Canonical()))

	if err != nil {
		if err == sql.ErrNoRows {
			return ident.NamespaceID{}, false, nil
		}
		return ident.NamespaceID{}, false, wrapInternal("resolve_namespace", err)
	}

	id, err := ident.ParseNamespaceID(idStr)
	if err != nil {
		return ident.NamespaceID{}, false, wrapInternal("resolve_namespace: parse uuid", err)
	}
	return id, true, nil
}

// ListNamespaces implements C1 list_namespaces for a warehouse.
func (t *Tx) ListNamespaces(ctx context.Context, warehouseID ident.WarehouseID) ([]ident.Namespace, error) {
	rows, err := t.query(ctx, `SELECT ns.namespace_name FROM namespace ns
		JOIN warehouse w ON w.warehouse_id = ns.warehouse_id
		WHERE w.warehouse_id = ? AND w.status = 'active'`, warehouseID.String())
	if err != nil {
		return nil, wrapInternal("list_namespaces", err)
	}
	defer rows.Close()

	var out []ident.Namespace
	for rows.Next() {
		var canonical string
		if err := rows.Scan(&canonical); err != nil {
			return nil, wrapInternal("list_namespaces: scan", err)
		}
		out = append(out, ident.ParseNamespace(canonical))
	}
	return out, wrapInternal("list_namespaces: rows", rows.Err())
}

// WarehouseSummary is the list_warehouses projection: identity and status
// only, not the full storage profile (spec §4.4).
type WarehouseSummary struct {
	ID     ident.WarehouseID `json:"warehouse-id"`
	Name   string            `json:"name"`
	Active bool              `json:"active"`
}

// ListWarehouses implements C1 list_warehouses(project, include_inactive).
func (t *Tx) ListWarehouses(ctx context.Context, projectID ident.ProjectID, includeInactive bool) ([]WarehouseSummary, error) {
	query := `SELECT warehouse_id, warehouse_name, status FROM warehouse WHERE project_id = ?`
	if !includeInactive {
		query += ` AND status = 'active'`
	}

	rows, err := t.query(ctx, query, projectID.String())
	if err != nil {
		return nil, wrapInternal("list_warehouses", err)
	}
	defer rows.Close()

	var out []WarehouseSummary
	for rows.Next() {
		var idStr, name, status string
		if err := rows.Scan(&idStr, &name, &status); err != nil {
			return nil, wrapInternal("list_warehouses: scan", err)
		}
		id, err := ident.ParseWarehouseID(idStr)
		if err != nil {
			return nil, wrapInternal("list_warehouses: parse uuid", err)
		}
		out = append(out, WarehouseSummary{ID: id, Name: name, Active: status == "active"})
	}
	return out, wrapInternal("list_warehouses: rows", rows.Err())
}

// ListProjects implements C1 list_projects: projects have no dedicated row,
// they exist only as the distinct project_id values referenced by warehouses.
func (t *Tx) ListProjects(ctx context.Context) ([]ident.ProjectID, error) {
	rows, err := t.query(ctx, `SELECT DISTINCT project_id FROM warehouse`)
	if err != nil {
		return nil, wrapInternal("list_projects", err)
	}
	defer rows.Close()

	var out []ident.ProjectID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, wrapInternal("list_projects: scan", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, wrapInternal("list_projects: parse uuid", err)
		}
		out = append(out, ident.ProjectID(id))
	}
	return out, wrapInternal("list_projects: rows", rows.Err())
}
