package catalogstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/icebase/catalogd/internal/apperr"
)

// wrapNotFound converts sql.ErrNoRows to the given NotFound error; other
// errors are wrapped as InternalServerError, matching the taxonomy's
// propagation policy (spec §7): errors are values, never logged-and-swallowed.
func wrapNotFound(op string, err error, notFound *apperr.Error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return apperr.Wrap(apperr.KindInternal, "StoreError", op, err)
}

func wrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.KindInternal, "StoreError", op, err)
}

// isDuplicateKeyError detects a MySQL/Dolt unique-constraint violation.
// database/sql has no portable sentinel for this, so the donor project's
// own idiom — string matching on the driver's error text — is reused here.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}

// namespaceHash returns the uniqueness-constraint key for a canonical
// namespace name (see schema.go).
func namespaceHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
