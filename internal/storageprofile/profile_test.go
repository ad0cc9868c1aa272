package storageprofile

import (
	"context"
	"testing"
)

func TestValidateS3RequiresBucket(t *testing.T) {
	err := Validate(context.Background(), Profile{Kind: KindS3}, nil)
	if err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestValidateS3WithoutCredentialIsAccepted(t *testing.T) {
	err := Validate(context.Background(), Profile{Kind: KindS3, Bucket: "b"}, nil)
	if err != nil {
		t.Fatalf("credential-less profile should validate: %v", err)
	}
}

func TestValidateS3CredentialMismatch(t *testing.T) {
	cred := &Credential{Kind: CredentialAzure}
	err := Validate(context.Background(), Profile{Kind: KindS3, Bucket: "b"}, cred)
	if err == nil {
		t.Fatalf("expected error for mismatched credential kind")
	}
}

func TestValidateS3CredentialAccepted(t *testing.T) {
	cred := &Credential{Kind: CredentialS3, AWSAccessKeyID: "AKIA...", AWSSecretAccessKey: "secret"}
	err := Validate(context.Background(), Profile{Kind: KindS3, Bucket: "b"}, cred)
	if err != nil {
		t.Fatalf("valid s3 credential should validate: %v", err)
	}
}

func TestMetadataRootS3(t *testing.T) {
	root, err := Profile{Kind: KindS3, Bucket: "my_bucket"}.MetadataRoot()
	if err != nil {
		t.Fatal(err)
	}
	if root != "s3://my_bucket" {
		t.Fatalf("got %q", root)
	}
}
