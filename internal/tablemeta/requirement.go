package tablemeta

import "github.com/icebase/catalogd/internal/apperr"

// Requirement is a precondition on a table's current metadata that must
// hold for a commit to proceed (spec §4.3 step 3). The two kinds the
// commit engine itself must honor — NotExist and UuidMatch — are
// implemented directly; every other kind is delegated to the aggregate's
// own assertion logic via the same interface, per spec §9.
type Requirement interface {
	// Assert evaluates the requirement against the table's current
	// metadata. exists reports whether the table is already committed
	// (metadata_location present); current is nil when the row carries no
	// metadata document. A staged table still has its initial document,
	// so current is non-nil for it while exists is false.
	Assert(current *Metadata, exists bool) error
}

// RequireNotExist is satisfied only if the table does not yet exist from
// the client's perspective — i.e. it is absent or still staged.
type RequireNotExist struct{}

func (RequireNotExist) Assert(_ *Metadata, exists bool) error {
	if exists {
		return apperr.New(apperr.KindConflict, apperr.TypeRequirementFailed,
			"assert-create failed: table already exists")
	}
	return nil
}

// RequireUUIDMatch is satisfied iff the table's current UUID equals the
// expected one.
type RequireUUIDMatch struct {
	UUID string
}

func (r RequireUUIDMatch) Assert(current *Metadata, exists bool) error {
	if !exists || current == nil {
		return apperr.New(apperr.KindConflict, apperr.TypeRequirementFailed,
			"assert-table-uuid failed: table does not exist")
	}
	if current.UUID != r.UUID {
		return apperr.New(apperr.KindConflict, apperr.TypeRequirementFailed,
			"assert-table-uuid failed: uuid mismatch")
	}
	return nil
}

// Delegated represents a requirement kind (ref-snapshot-id, current
// schema/spec/sort-order id, last-assigned ids, ...) whose semantics the
// spec explicitly delegates to the metadata aggregate's assertion module.
// Check is supplied by the caller building the commit request from the
// wire payload, so the set of supported delegated kinds can grow without
// touching the commit engine.
type Delegated struct {
	Name  string
	Check func(current *Metadata, exists bool) error
}

func (d Delegated) Assert(current *Metadata, exists bool) error {
	if d.Check == nil {
		return nil
	}
	if err := d.Check(current, exists); err != nil {
		return apperr.Wrap(apperr.KindConflict, apperr.TypeRequirementFailed,
			"requirement "+d.Name+" failed", err)
	}
	return nil
}
