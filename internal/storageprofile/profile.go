// Package storageprofile implements the warehouse's opaque, tagged storage
// profile (spec §3, "Warehouse") and the structural validation step spec
// §4.4 step 1 requires before a warehouse is created or its storage is
// updated. Validation never performs a network call; it only checks that
// the profile and credential shapes are mutually consistent enough to
// build a credentials provider for the target cloud.
package storageprofile

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Kind tags which cloud a Profile describes.
type Kind string

const (
	KindS3    Kind = "s3"
	KindAzure Kind = "az"
	KindGCS   Kind = "gcs"
)

// Profile is the opaque tagged record persisted as warehouse.storage_profile.
type Profile struct {
	Kind Kind `json:"type"`

	// S3 fields.
	Bucket         string `json:"bucket,omitempty"`
	Region         string `json:"region,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	PathStyleAccess bool   `json:"path-style-access,omitempty"`

	// Azure fields.
	AccountName string `json:"account-name,omitempty"`
	Container   string `json:"container,omitempty"`

	// GCS fields.
	GCSBucket string `json:"gcs-bucket,omitempty"`
}

// CredentialKind tags which cloud a Credential authenticates against.
type CredentialKind string

const (
	CredentialS3    CredentialKind = "s3"
	CredentialAzure CredentialKind = "az"
	CredentialGCS   CredentialKind = "gcs"
)

// Credential is the opaque tagged credential blob a client may supply
// alongside a Profile. Only its handle, never the blob itself, is
// persisted by the catalog (spec §3, "Secret").
type Credential struct {
	Kind CredentialKind `json:"credential-type"`

	// S3 access-key credential.
	AWSAccessKeyID     string `json:"aws-access-key-id,omitempty"`
	AWSSecretAccessKey string `json:"aws-secret-access-key,omitempty"`

	// Azure client-secret credential.
	AzureTenantID     string `json:"azure-tenant-id,omitempty"`
	AzureClientID     string `json:"azure-client-id,omitempty"`
	AzureClientSecret string `json:"azure-client-secret,omitempty"`
}

// Validate checks that profile and an optional credential are mutually
// consistent, building (but never dialing) the cloud SDK's credentials
// provider as the structural check. A nil credential is always accepted;
// the warehouse is then created without one (spec §4.4 step 1 allows
// credential-less profiles, e.g. instance-role-based auth).
func Validate(ctx context.Context, profile Profile, cred *Credential) error {
	switch profile.Kind {
	case KindS3:
		if profile.Bucket == "" {
			return fmt.Errorf("storageprofile: s3 profile requires a bucket")
		}
		if cred == nil {
			return nil
		}
		if cred.Kind != CredentialS3 {
			return fmt.Errorf("storageprofile: s3 profile requires an s3 credential, got %q", cred.Kind)
		}
		if cred.AWSAccessKeyID == "" || cred.AWSSecretAccessKey == "" {
			return fmt.Errorf("storageprofile: s3 credential missing access key id/secret")
		}
		provider := credentials.NewStaticCredentialsProvider(cred.AWSAccessKeyID, cred.AWSSecretAccessKey, "")
		if _, err := provider.Retrieve(ctx); err != nil {
			return fmt.Errorf("storageprofile: s3 credential invalid: %w", err)
		}
		return nil

	case KindAzure:
		if profile.AccountName == "" || profile.Container == "" {
			return fmt.Errorf("storageprofile: azure profile requires account-name and container")
		}
		if cred == nil {
			return nil
		}
		if cred.Kind != CredentialAzure {
			return fmt.Errorf("storageprofile: azure profile requires an azure credential, got %q", cred.Kind)
		}
		if cred.AzureTenantID == "" || cred.AzureClientID == "" || cred.AzureClientSecret == "" {
			return fmt.Errorf("storageprofile: azure credential missing tenant/client id/secret")
		}
		if _, err := azidentity.NewClientSecretCredential(cred.AzureTenantID, cred.AzureClientID, cred.AzureClientSecret, nil); err != nil {
			return fmt.Errorf("storageprofile: azure credential invalid: %w", err)
		}
		return nil

	case KindGCS:
		if profile.GCSBucket == "" {
			return fmt.Errorf("storageprofile: gcs profile requires gcs-bucket")
		}
		return nil

	default:
		return fmt.Errorf("storageprofile: unknown profile type %q", profile.Kind)
	}
}

// MetadataRoot returns the URI root (scheme plus bucket, or container and
// account) that table locations under this profile start with. The commit
// engine checks each table's location against it; new metadata file URIs
// are then built under the table's own location.
func (p Profile) MetadataRoot() (string, error) {
	switch p.Kind {
	case KindS3:
		if p.Bucket == "" {
			return "", fmt.Errorf("storageprofile: s3 profile missing bucket")
		}
		return "s3://" + p.Bucket, nil
	case KindAzure:
		if p.AccountName == "" || p.Container == "" {
			return "", fmt.Errorf("storageprofile: azure profile missing account/container")
		}
		return fmt.Sprintf("abfss://%s@%s.dfs.core.windows.net", p.Container, p.AccountName), nil
	case KindGCS:
		if p.GCSBucket == "" {
			return "", fmt.Errorf("storageprofile: gcs profile missing bucket")
		}
		return "gs://" + p.GCSBucket, nil
	default:
		return "", fmt.Errorf("storageprofile: unknown profile type %q", p.Kind)
	}
}
