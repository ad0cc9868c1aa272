package catalogstore

import "context"

// schemaStatements is the catalog's SQL schema (spec §6 "Persisted state").
// Namespace names are stored as their 0x1F-joined canonical form; MySQL/Dolt
// cannot index a TEXT column directly, so a SHA-256 hex digest of the
// canonical form backs the uniqueness constraint and is the column
// namespace lookups match on; the canonical text itself is what
// list_namespaces reads back.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS warehouse (
		warehouse_id CHAR(36) PRIMARY KEY,
		project_id CHAR(36) NOT NULL,
		warehouse_name VARCHAR(255) NOT NULL,
		storage_profile JSON NOT NULL,
		storage_secret_id VARCHAR(64) NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_warehouse_project_name (project_id, warehouse_name)
	)`,
	`CREATE TABLE IF NOT EXISTS namespace (
		namespace_id CHAR(36) PRIMARY KEY,
		warehouse_id CHAR(36) NOT NULL,
		namespace_name TEXT NOT NULL,
		namespace_name_hash CHAR(64) NOT NULL,
		properties JSON NOT NULL,
		UNIQUE KEY uq_namespace_warehouse_name (warehouse_id, namespace_name_hash),
		CONSTRAINT fk_namespace_warehouse FOREIGN KEY (warehouse_id) REFERENCES warehouse(warehouse_id)
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_table (
		table_id CHAR(36) PRIMARY KEY,
		namespace_id CHAR(36) NOT NULL,
		table_name VARCHAR(255) NOT NULL,
		metadata JSON NOT NULL,
		metadata_location TEXT NULL,
		table_location TEXT NOT NULL,
		UNIQUE KEY uq_table_namespace_name (namespace_id, table_name),
		CONSTRAINT fk_table_namespace FOREIGN KEY (namespace_id) REFERENCES namespace(namespace_id)
	)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := s.withRetry(ctx, func() error {
			_, err := s.db.ExecContext(ctx, stmt)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}
