package secretstore

import (
	"context"
	"encoding/base64"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/google/uuid"
)

// VaultStore backs Store with HashiCorp Vault's KV v2 secret engine.
type VaultStore struct {
	client     *vaultapi.Client
	mountPath  string // e.g. "secret"
	pathPrefix string // e.g. "catalogd/warehouses"
}

// NewVaultStore builds a VaultStore from an already-configured Vault API
// client (address, token and TLS are expected to be set by the caller via
// vaultapi.DefaultConfig()/client.SetToken(), following the standard Vault
// Go client bootstrap).
func NewVaultStore(client *vaultapi.Client, mountPath, pathPrefix string) *VaultStore {
	return &VaultStore{client: client, mountPath: mountPath, pathPrefix: pathPrefix}
}

func (v *VaultStore) secretPath(handle Handle) string {
	return fmt.Sprintf("%s/%s", v.pathPrefix, handle)
}

func (v *VaultStore) Create(ctx context.Context, blob []byte) (Handle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	handle := Handle(id.String())

	data := map[string]interface{}{
		"blob": base64.StdEncoding.EncodeToString(blob),
	}
	_, err = v.client.KVv2(v.mountPath).Put(ctx, v.secretPath(handle), data)
	if err != nil {
		return "", fmt.Errorf("secretstore: vault put: %w", err)
	}
	return handle, nil
}

func (v *VaultStore) Get(ctx context.Context, handle Handle) ([]byte, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, v.secretPath(handle))
	if err != nil {
		return nil, fmt.Errorf("secretstore: vault get: %w", err)
	}
	encoded, ok := secret.Data["blob"].(string)
	if !ok {
		return nil, fmt.Errorf("secretstore: vault secret at %q missing blob field", handle)
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func (v *VaultStore) Delete(ctx context.Context, handle Handle) error {
	if err := v.client.KVv2(v.mountPath).DeleteMetadata(ctx, v.secretPath(handle)); err != nil {
		return fmt.Errorf("secretstore: vault delete: %w", err)
	}
	return nil
}
