package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
)

// assertWarehouseActive is the gate every namespace and table query sits
// behind (spec invariant: "table rows exist only under active warehouses").
func (t *Tx) assertWarehouseActive(ctx context.Context, warehouseID ident.WarehouseID) error {
	var status string
	err := t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&status)
	}, `SELECT status FROM warehouse WHERE warehouse_id = ?`, warehouseID.String())
	if err != nil {
		return wrapNotFound("assert_warehouse_active", err,
			apperr.New(apperr.KindNotFound, apperr.TypeNoSuchWarehouse, "no such warehouse"))
	}
	if status != "active" {
		return apperr.New(apperr.KindNotFound, apperr.TypeWarehouseInactive, "warehouse is not active")
	}
	return nil
}

// CreateNamespace inserts a namespace under an active warehouse.
func (t *Tx) CreateNamespace(ctx context.Context, warehouseID ident.WarehouseID, namespace ident.Namespace, properties map[string]string) (ident.NamespaceID, error) {
	if err := t.assertWarehouseActive(ctx, warehouseID); err != nil {
		return ident.NamespaceID{}, err
	}

	id, err := ident.NewNamespaceID()
	if err != nil {
		return ident.NamespaceID{}, wrapInternal("create_namespace: new id", err)
	}

	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return ident.NamespaceID{}, wrapInternal("create_namespace: marshal properties", err)
	}

	_, err = t.exec(ctx, `INSERT INTO namespace (namespace_id, warehouse_id, namespace_name, namespace_name_hash, properties)
		VALUES (?, ?, ?, ?, ?)`,
		id.String(), warehouseID.String(), namespace.Canonical(), namespaceHash(namespace.Canonical()), propsJSON)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ident.NamespaceID{}, apperr.New(apperr.KindConflict, apperr.TypeNamespaceNotEmpty, "namespace already exists")
		}
		return ident.NamespaceID{}, wrapInternal("create_namespace", err)
	}
	return id, nil
}

// NamespaceProperties fetches the properties map for a resolved namespace.
func (t *Tx) NamespaceProperties(ctx context.Context, warehouseID ident.WarehouseID, namespace ident.Namespace) (map[string]string, error) {
	if err := t.assertWarehouseActive(ctx, warehouseID); err != nil {
		return nil, err
	}

	var propsJSON []byte
	err := t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&propsJSON)
	}, `SELECT properties FROM namespace WHERE warehouse_id = ? AND namespace_name_hash = ?`,
		warehouseID.String(), namespaceHash(namespace.Canonical()))
	if err != nil {
		return nil, wrapNotFound("namespace_properties", err,
			apperr.New(apperr.KindNotFound, apperr.TypeNoSuchNamespace, "no such namespace"))
	}

	var props map[string]string
	if err := json.Unmarshal(propsJSON, &props); err != nil {
		return nil, wrapInternal("namespace_properties: unmarshal", err)
	}
	return props, nil
}

// DropNamespace deletes a namespace; it must be empty (invariant: "namespace
// drop requires the namespace to be empty").
func (t *Tx) DropNamespace(ctx context.Context, warehouseID ident.WarehouseID, namespace ident.Namespace) error {
	if err := t.assertWarehouseActive(ctx, warehouseID); err != nil {
		return err
	}

	nsID, ok, err := t.ResolveNamespace(ctx, warehouseID, namespace)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchNamespace, "no such namespace")
	}

	var tableCount int
	err = t.queryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&tableCount)
	}, `SELECT COUNT(*) FROM catalog_table WHERE namespace_id = ?`, nsID.String())
	if err != nil {
		return wrapInternal("drop_namespace: count tables", err)
	}
	if tableCount > 0 {
		return apperr.New(apperr.KindConflict, apperr.TypeNamespaceNotEmpty, "namespace is not empty")
	}

	res, err := t.exec(ctx, `DELETE FROM namespace WHERE namespace_id = ?`, nsID.String())
	if err != nil {
		return wrapInternal("drop_namespace", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapInternal("drop_namespace: rows affected", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.TypeNoSuchNamespace, "no such namespace")
	}
	return nil
}
