package tablemeta

import "github.com/icebase/catalogd/internal/apperr"

// Update is a mutation folded into a metadata aggregate to produce a new
// document (spec §4.3 step 4). AssignUuid and SetLocation enforce their
// "must equal current" guards in their own Apply methods (the aggregate's
// setters accept any value); every other kind delegates to the aggregate
// via Apply, per spec §9.
type Update interface {
	// Apply folds the update into agg. current is the pre-commit metadata,
	// used by AssignUuid/SetLocation to validate against the existing
	// value; it is nil when the row carries no metadata document (no guard
	// applies).
	Apply(agg *Aggregate, current *Metadata) error
}

// AssignUUID is only legal as a no-op against the table's current UUID;
// any other value is rejected (spec §4.3 step 4, invariant 3).
type AssignUUID struct {
	UUID string
}

func (u AssignUUID) Apply(agg *Aggregate, current *Metadata) error {
	if current != nil && current.UUID != "" && current.UUID != u.UUID {
		return apperr.New(apperr.KindBadRequest, apperr.TypeAssignUuidNotAllowed,
			"assign-uuid may not change an existing table's uuid")
	}
	agg.AssignUUID(u.UUID)
	return nil
}

// SetLocation is only legal as a no-op against the table's current
// location; any other value is rejected (spec §4.3 step 4, invariant 4).
type SetLocation struct {
	Location string
}

func (u SetLocation) Apply(agg *Aggregate, current *Metadata) error {
	if current != nil && current.Location != "" && current.Location != u.Location {
		return apperr.New(apperr.KindBadRequest, apperr.TypeSetLocationNotAllowed,
			"set-location may not change an existing table's location")
	}
	agg.SetLocation(u.Location)
	return nil
}

// SetProperties merges properties into the document.
type SetProperties struct {
	Properties map[string]string
}

func (u SetProperties) Apply(agg *Aggregate, _ *Metadata) error {
	agg.SetProperties(u.Properties)
	return nil
}

// RemoveProperties deletes keys from the document's properties.
type RemoveProperties struct {
	Keys []string
}

func (u RemoveProperties) Apply(agg *Aggregate, _ *Metadata) error {
	agg.RemoveProperties(u.Keys)
	return nil
}

// SetDefaultSpec sets the default partition spec id. The spec to activate
// must already be among the document's partition specs; the metadata
// aggregate's SetDefaultPartitionSpec rejects an unknown id.
type SetDefaultSpec struct {
	SpecID int
}

func (u SetDefaultSpec) Apply(agg *Aggregate, _ *Metadata) error {
	return agg.SetDefaultPartitionSpec(u.SpecID)
}

// SetDefaultSortOrder sets the default sort order id.
type SetDefaultSortOrder struct {
	OrderID int
}

func (u SetDefaultSortOrder) Apply(agg *Aggregate, _ *Metadata) error {
	return agg.SetDefaultSortOrder(u.OrderID)
}

// SetCurrentSnapshot and friends delegate snapshot bookkeeping to the
// aggregate's single snapshot pointer; full snapshot-graph manipulation is
// out of this core's scope (spec §1, "schema-evolution policy decisions").
type SetCurrentSnapshot struct {
	SnapshotID int64
}

func (u SetCurrentSnapshot) Apply(agg *Aggregate, _ *Metadata) error {
	agg.SetCurrentSnapshotID(u.SnapshotID)
	return nil
}

type SetSnapshotRef struct {
	Name       string
	SnapshotID int64
}

func (u SetSnapshotRef) Apply(agg *Aggregate, _ *Metadata) error {
	agg.SetSnapshotRef(u.Name, u.SnapshotID)
	return nil
}

type RemoveSnapshotRef struct {
	Name string
}

func (u RemoveSnapshotRef) Apply(agg *Aggregate, _ *Metadata) error {
	agg.RemoveSnapshotRef(u.Name)
	return nil
}

// DelegatedUpdate represents an update kind (add-schema, set-current-schema,
// add-sort-order, remove-snapshots, set-statistics, ...) whose application
// logic the spec delegates wholesale to the metadata aggregate. An update
// with no Fn is rejected as unsupported rather than silently ignored.
type DelegatedUpdate struct {
	Name string
	Fn   func(agg *Aggregate) error
}

func (u DelegatedUpdate) Apply(agg *Aggregate, _ *Metadata) error {
	if u.Fn == nil {
		return apperr.New(apperr.KindBadRequest, "DelegatedUpdateUnsupported",
			"update "+u.Name+" is not supported")
	}
	if err := u.Fn(agg); err != nil {
		return apperr.Wrap(apperr.KindInternal, "DelegatedUpdateFailed",
			"update "+u.Name+" failed", err)
	}
	return nil
}
