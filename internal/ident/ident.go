// Package ident defines the catalog's identifier types: UUID-keyed
// project/warehouse/namespace/table identity and the multi-part name
// vectors used to address namespaces and tables by name.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// unitSeparator is the 0x1F byte the protocol uses to join multi-part
// namespace names in URL path segments (spec §9, open question 4).
const unitSeparator = "\x1f"

// ProjectID, WarehouseID, NamespaceID and TableID are distinct UUID types
// so the compiler catches a table UUID passed where a warehouse UUID is
// expected.
type (
	ProjectID   uuid.UUID
	WarehouseID uuid.UUID
	NamespaceID uuid.UUID
	TableID     uuid.UUID
)

func (id ProjectID) String() string   { return uuid.UUID(id).String() }
func (id WarehouseID) String() string { return uuid.UUID(id).String() }
func (id NamespaceID) String() string { return uuid.UUID(id).String() }
func (id TableID) String() string     { return uuid.UUID(id).String() }

// MarshalText/UnmarshalText round-trip these ids as their canonical UUID
// string form over JSON. Defined types don't inherit the underlying type's
// methods, so without these encoding/json would fall back to marshaling the
// raw [16]byte array instead of calling uuid.UUID's own TextMarshaler.
func (id ProjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *ProjectID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ProjectID(u)
	return nil
}

func (id WarehouseID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *WarehouseID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = WarehouseID(u)
	return nil
}

func (id NamespaceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *NamespaceID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = NamespaceID(u)
	return nil
}

func (id TableID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *TableID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = TableID(u)
	return nil
}

// NewWarehouseID, NewNamespaceID and NewTableID mint fresh identifiers.
// Table identifiers are allocated v7 (time-ordered) per spec §4.3 step 5,
// so that metadata-location generation and table identity share one
// monotonic ID scheme.
func NewWarehouseID() (WarehouseID, error) {
	id, err := uuid.NewV7()
	return WarehouseID(id), err
}

func NewNamespaceID() (NamespaceID, error) {
	id, err := uuid.NewV7()
	return NamespaceID(id), err
}

func NewTableID() (TableID, error) {
	id, err := uuid.NewV7()
	return TableID(id), err
}

// ParseTableID parses a UUID string into a TableID.
func ParseTableID(s string) (TableID, error) {
	id, err := uuid.Parse(s)
	return TableID(id), err
}

// ParseWarehouseID parses a UUID string into a WarehouseID.
func ParseWarehouseID(s string) (WarehouseID, error) {
	id, err := uuid.Parse(s)
	return WarehouseID(id), err
}

// ParseNamespaceID parses a UUID string into a NamespaceID.
func ParseNamespaceID(s string) (NamespaceID, error) {
	id, err := uuid.Parse(s)
	return NamespaceID(id), err
}

// ParseProjectID parses a UUID string into a ProjectID.
func ParseProjectID(s string) (ProjectID, error) {
	id, err := uuid.Parse(s)
	return ProjectID(id), err
}

// Namespace is the canonical, ordered, non-empty-part name vector that
// identifies a namespace within a warehouse.
type Namespace []string

// Equal reports whether two namespace vectors name the same namespace.
// Comparison is exact, case-sensitive, byte-wise (spec §4.1 semantics).
func (n Namespace) Equal(other Namespace) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// Canonical returns the 0x1F-joined wire form used both as the SQL unique
// key and as the protocol's URL path-segment encoding for a namespace.
func (n Namespace) Canonical() string {
	return strings.Join(n, unitSeparator)
}

// ParseNamespace splits a 0x1F-joined wire form back into its parts.
func ParseNamespace(canonical string) Namespace {
	if canonical == "" {
		return Namespace{}
	}
	return strings.Split(canonical, unitSeparator)
}

// TableIdent addresses a table (or a staged table reservation) by name:
// the namespace it lives in plus its name within that namespace.
type TableIdent struct {
	Namespace Namespace `json:"namespace"`
	Name      string    `json:"name"`
}

func (t TableIdent) Equal(other TableIdent) bool {
	return t.Name == other.Name && t.Namespace.Equal(other.Namespace)
}

func (t TableIdent) String() string {
	if len(t.Namespace) == 0 {
		return t.Name
	}
	return t.Namespace.Canonical() + unitSeparator + t.Name
}
