package catalogstore

import (
	"context"
	"testing"

	"github.com/apache/iceberg-go"
	"github.com/google/uuid"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/secretstore"
	"github.com/icebase/catalogd/internal/storageprofile"
	"github.com/icebase/catalogd/internal/tablemeta"
)

// testSchema returns a minimal, real apache/iceberg-go schema: one required
// int64 identifier column. Good enough to exercise the metadata aggregate's
// build path without depending on any richer type support.
func testSchema() *iceberg.Schema {
	return iceberg.NewSchema(0, iceberg.NestedField{ID: 1, Name: "id", Type: iceberg.PrimitiveTypes.Int64, Required: true})
}

// testProjectID mints a fresh project identifier. Projects have no
// dedicated row (spec §4.1 list_projects), so any UUID a client picks is a
// valid project id the moment a warehouse references it.
func testProjectID(t *testing.T) ident.ProjectID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid.NewV7: %v", err)
	}
	return ident.ProjectID(id)
}

// newTestStore opens an embedded store rooted at a fresh temp directory, the
// same way the donor's sqlite tests spin up a throwaway on-disk database per
// test rather than sharing one across the package.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(context.Background(), Config{Path: dir, Database: "catalogd_test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testProfile() storageprofile.Profile {
	return storageprofile.Profile{Kind: storageprofile.KindS3, Bucket: "test-bucket", Region: "us-east-1"}
}

func TestWarehouseLifecycle(t *testing.T) {
	store := newTestStore(t)
	secrets := secretstore.NewMemoryStore()
	ctx := context.Background()
	projectID := testProjectID(t)

	var whID ident.WarehouseID
	err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		whID, innerErr = tx.CreateWarehouse(ctx, secrets, projectID, "wh1", testProfile(), nil)
		return innerErr
	})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	err = store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.CreateWarehouse(ctx, secrets, projectID, "wh1", testProfile(), nil)
		return innerErr
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeWarehouseNameConflict {
		t.Fatalf("duplicate warehouse name: got %v, want WarehouseNameConflict", err)
	}

	var row WarehouseRow
	err = store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		row, innerErr = tx.GetWarehouse(ctx, whID)
		return innerErr
	})
	if err != nil {
		t.Fatalf("GetWarehouse: %v", err)
	}
	if !row.Active || row.Name != "wh1" {
		t.Fatalf("unexpected warehouse row: %+v", row)
	}

	err = store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DeactivateWarehouse(ctx, whID)
	})
	if err != nil {
		t.Fatalf("DeactivateWarehouse: %v", err)
	}

	var active, all []WarehouseSummary
	err = store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		if active, innerErr = tx.ListWarehouses(ctx, projectID, false); innerErr != nil {
			return innerErr
		}
		all, innerErr = tx.ListWarehouses(ctx, projectID, true)
		return innerErr
	})
	if err != nil {
		t.Fatalf("ListWarehouses: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active warehouses after deactivation, got %+v", active)
	}
	if len(all) != 1 || all[0].ID != whID || all[0].Active {
		t.Fatalf("expected one inactive warehouse, got %+v", all)
	}

	var projects []ident.ProjectID
	err = store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		projects, innerErr = tx.ListProjects(ctx)
		return innerErr
	})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	found := false
	for _, p := range projects {
		if p == projectID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %v among %v", projectID, projects)
	}

	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DeleteWarehouse(ctx, secrets, whID)
	}); err != nil {
		t.Fatalf("DeleteWarehouse: %v", err)
	}

	err = store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.GetWarehouse(ctx, whID)
		return innerErr
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeNoSuchWarehouse {
		t.Fatalf("GetWarehouse after delete: got %v", err)
	}
}

func TestNamespaceAndTableLifecycle(t *testing.T) {
	store := newTestStore(t)
	secrets := secretstore.NewMemoryStore()
	ctx := context.Background()
	projectID := testProjectID(t)

	var whID ident.WarehouseID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		whID, innerErr = tx.CreateWarehouse(ctx, secrets, projectID, "wh1", testProfile(), nil)
		return innerErr
	}); err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	ns := ident.Namespace{"db1"}
	var nsID ident.NamespaceID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		nsID, innerErr = tx.CreateNamespace(ctx, whID, ns, map[string]string{"owner": "alice"})
		return innerErr
	}); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}

	err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.CreateNamespace(ctx, whID, ns, nil)
		return innerErr
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeNamespaceNotEmpty {
		t.Fatalf("duplicate namespace: got %v", err)
	}

	tableLoc := "s3://test-bucket/db1/t1"
	var tableID ident.TableID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		tableID, innerErr = tx.CreateTable(ctx, nsID, "t1", CreateTableRequest{
			Location: tableLoc,
			Schema:   testSchema(),
		})
		return innerErr
	}); err != nil {
		t.Fatalf("CreateTable (staged): %v", err)
	}

	// Staged tables aren't loadable.
	err = store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.LoadTable(ctx, nsID, "t1")
		return innerErr
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeNoSuchTableError {
		t.Fatalf("LoadTable on staged table: got %v", err)
	}

	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.CreateTable(ctx, nsID, "t1", CreateTableRequest{
			Location:  tableLoc,
			Schema:    testSchema(),
			Committed: true,
		})
		return innerErr
	}); err != nil {
		t.Fatalf("CreateTable (commit over staged): %v", err)
	}

	var row TableRow
	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		row, innerErr = tx.LoadTable(ctx, nsID, "t1")
		return innerErr
	}); err != nil {
		t.Fatalf("LoadTable after commit: %v", err)
	}
	if row.Staged() || row.ID != tableID {
		t.Fatalf("committed row mismatch: %+v", row)
	}

	// Creating again over a committed row is a conflict, not an upsert.
	err = store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.CreateTable(ctx, nsID, "t1", CreateTableRequest{
			Location:  tableLoc,
			Schema:    testSchema(),
			Committed: true,
		})
		return innerErr
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeTableAlreadyExists {
		t.Fatalf("recreate over committed table: got %v", err)
	}

	// Prefix lookup by location.
	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		found, innerErr := tx.GetByLocation(ctx, whID, "s3://test-bucket/db1/t1/data/file-1.parquet")
		if innerErr != nil {
			return innerErr
		}
		if found.ID != tableID {
			t.Fatalf("GetByLocation resolved wrong table: %+v", found)
		}
		return nil
	}); err != nil {
		t.Fatalf("GetByLocation: %v", err)
	}

	// Rename within the same namespace.
	from := ident.TableIdent{Namespace: ns, Name: "t1"}
	to := ident.TableIdent{Namespace: ns, Name: "t1-renamed"}
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.RenameTable(ctx, whID, from, to)
	}); err != nil {
		t.Fatalf("RenameTable: %v", err)
	}

	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.LoadTable(ctx, nsID, "t1-renamed")
		return innerErr
	}); err != nil {
		t.Fatalf("LoadTable after rename: %v", err)
	}

	// Drop requires the namespace be empty first.
	err = store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DropNamespace(ctx, whID, ns)
	})
	if ae, ok := apperr.As(err); !ok || ae.Type != apperr.TypeNamespaceNotEmpty {
		t.Fatalf("DropNamespace on non-empty namespace: got %v", err)
	}

	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DropTable(ctx, whID, to)
	}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.DropNamespace(ctx, whID, ns)
	}); err != nil {
		t.Fatalf("DropNamespace after drop: %v", err)
	}
}

func TestResolveTablesBatchBound(t *testing.T) {
	var tx Tx // zero-value Tx: the bound check short-circuits before any DB call
	tbls := make([]ident.TableIdent, MaxBatchParameters+1)
	for i := range tbls {
		tbls[i] = ident.TableIdent{Namespace: ident.Namespace{"db1"}, Name: "t"}
	}
	_, err := tx.ResolveTablesBatch(context.Background(), ident.WarehouseID{}, tbls, false)
	ae, ok := apperr.As(err)
	if !ok || ae.Type != apperr.TypeTooManyTables {
		t.Fatalf("ResolveTablesBatch over bound: got %v, want TooManyTables", err)
	}
}

func TestCommitTablesBound(t *testing.T) {
	var tx Tx
	changes := make([]TableChange, MaxCommitChanges+1)
	_, err := tx.CommitTables(context.Background(), ident.WarehouseID{}, changes)
	ae, ok := apperr.As(err)
	if !ok || ae.Type != apperr.TypeTooManyTablesForCommit {
		t.Fatalf("CommitTables over bound: got %v, want TooManyTablesForCommit", err)
	}
}

func TestCommitTransaction(t *testing.T) {
	store := newTestStore(t)
	secrets := secretstore.NewMemoryStore()
	ctx := context.Background()
	projectID := testProjectID(t)

	var whID ident.WarehouseID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		whID, innerErr = tx.CreateWarehouse(ctx, secrets, projectID, "wh1", testProfile(), nil)
		return innerErr
	}); err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	ns := ident.Namespace{"db1"}
	var nsID ident.NamespaceID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		nsID, innerErr = tx.CreateNamespace(ctx, whID, ns, nil)
		return innerErr
	}); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}

	tableLoc := "s3://test-bucket/db1/t1"
	var tableID ident.TableID
	var row TableRow
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		tableID, innerErr = tx.CreateTable(ctx, nsID, "t1", CreateTableRequest{
			Location:   tableLoc,
			Schema:     testSchema(),
			Properties: map[string]string{"k": "v"},
			Committed:  true,
		})
		return innerErr
	}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		row, innerErr = tx.GetByID(ctx, tableID)
		return innerErr
	}); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	origMetaLoc := *row.MetadataLocation

	// Invariant 5: create_table mints the table_id and feeds it straight
	// into the metadata aggregate's assign_uuid step, so the stored
	// document's table-uuid is always exactly the table's real id.
	tableUUID := tableID.String()

	tbl := ident.TableIdent{Namespace: ns, Name: "t1"}
	var results []CommitResult
	err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		results, innerErr = tx.CommitTables(ctx, whID, []TableChange{
			{
				Identifier:   &tbl,
				Requirements: []tablemeta.Requirement{tablemeta.RequireUUIDMatch{UUID: tableUUID}},
				Updates: []tablemeta.Update{
					tablemeta.SetProperties{Properties: map[string]string{"k2": "v2"}},
				},
			},
		})
		return innerErr
	})
	if err != nil {
		t.Fatalf("CommitTables: %v", err)
	}
	if len(results) != 1 || results[0].TableID != tableID {
		t.Fatalf("unexpected commit results: %+v", results)
	}
	if results[0].NewMetadataLocation == origMetaLoc {
		t.Fatalf("commit did not advance the metadata location")
	}
	if results[0].OldMetadataLocation == nil || *results[0].OldMetadataLocation != origMetaLoc {
		t.Fatalf("expected old metadata location %q, got %+v", origMetaLoc, results[0].OldMetadataLocation)
	}
	if len(results[0].OldMetadata) == 0 {
		t.Fatalf("expected the previous metadata snapshot to be carried in the commit result")
	}
	if results[0].StorageProfile.Bucket != "test-bucket" {
		t.Fatalf("expected the warehouse's storage profile to be carried in the commit result, got %+v", results[0].StorageProfile)
	}

	// A requirement mismatch aborts the whole commit.
	err = store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		_, innerErr := tx.CommitTables(ctx, whID, []TableChange{
			{
				Identifier:   &tbl,
				Requirements: []tablemeta.Requirement{tablemeta.RequireUUIDMatch{UUID: "not-the-right-uuid"}},
			},
		})
		return innerErr
	})
	if err == nil {
		t.Fatal("expected a requirement-mismatch error")
	}
}

func TestCredentialLifecycle(t *testing.T) {
	store := newTestStore(t)
	secrets := secretstore.NewMemoryStore()
	ctx := context.Background()
	projectID := testProjectID(t)

	cred := &storageprofile.Credential{Kind: storageprofile.CredentialS3, AWSAccessKeyID: "AKIA", AWSSecretAccessKey: "secret"}
	var whID ident.WarehouseID
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		whID, innerErr = tx.CreateWarehouse(ctx, secrets, projectID, "wh1", testProfile(), cred)
		return innerErr
	}); err != nil {
		t.Fatalf("CreateWarehouse with credential: %v", err)
	}

	var row WarehouseRow
	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		row, innerErr = tx.GetWarehouse(ctx, whID)
		return innerErr
	}); err != nil {
		t.Fatalf("GetWarehouse: %v", err)
	}
	if row.SecretID == nil {
		t.Fatal("expected a secret handle to be recorded")
	}
	oldHandle := *row.SecretID

	// Clearing the credential deletes the old secret and clears the handle.
	if err := store.RunInWriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.UpdateCredential(ctx, secrets, whID, nil)
	}); err != nil {
		t.Fatalf("UpdateCredential(nil): %v", err)
	}
	if _, err := secrets.Get(ctx, oldHandle); err == nil {
		t.Fatal("expected old secret to be deleted")
	}

	if err := store.RunInReadTx(ctx, func(ctx context.Context, tx *Tx) error {
		var innerErr error
		row, innerErr = tx.GetWarehouse(ctx, whID)
		return innerErr
	}); err != nil {
		t.Fatalf("GetWarehouse after clear: %v", err)
	}
	if row.SecretID != nil {
		t.Fatalf("expected nil secret handle, got %v", *row.SecretID)
	}
}
