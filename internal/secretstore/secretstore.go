// Package secretstore abstracts the external secret store the catalog
// delegates credential persistence to (spec §3 "Secret", §4.4
// create_warehouse step 3). The catalog never persists a credential blob
// itself — only the handle this package returns.
package secretstore

import "context"

// Handle is an opaque pointer into the secret store. Only the handle is
// ever persisted on a warehouse row.
type Handle string

// Store is the pluggable collaborator named in spec §9 ("SecretStore::create(blob) → handle").
type Store interface {
	// Create persists blob and returns a fresh handle.
	Create(ctx context.Context, blob []byte) (Handle, error)
	// Get retrieves the blob a handle points to.
	Get(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes the blob a handle points to. Deletion is always
	// best-effort from the caller's point of view (spec §4.4
	// update_credential semantics): a Delete error never blocks the
	// warehouse mutation that triggered it.
	Delete(ctx context.Context, handle Handle) error
}
