// Package tablemeta implements the catalog's view of the Iceberg table
// metadata document as an opaque aggregate, per spec §9 ("Metadata
// aggregate"). It leans on github.com/apache/iceberg-go for the leaf types
// (schema, partition spec, sort order) and owns only the accumulation and
// requirement/update machinery the catalog core is responsible for.
package tablemeta

import (
	"fmt"

	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/table"
	"github.com/google/uuid"
)

// Metadata is the catalog's in-process view of a table's metadata
// document: the fields the commit engine and metadata store need to read
// or compare, independent of how the document is serialized to its
// metadata.json file.
type Metadata struct {
	UUID     string `json:"table-uuid"`
	Location string `json:"location"`

	Schema             *iceberg.Schema         `json:"schema"`
	PartitionSpecs     []iceberg.PartitionSpec `json:"partition-specs,omitempty"`
	DefaultSpecID      int                     `json:"default-spec-id"`
	SortOrders         []table.SortOrder       `json:"sort-orders,omitempty"`
	DefaultSortOrderID int                     `json:"default-sort-order-id"`
	Properties         iceberg.Properties      `json:"properties,omitempty"`

	// CurrentSnapshotID and SnapshotRefs are carried opaquely: the commit
	// engine only ever compares or replaces them wholesale via updates
	// delegated through the Update interface, never inspects them.
	CurrentSnapshotID *int64           `json:"current-snapshot-id,omitempty"`
	SnapshotRefs      map[string]int64 `json:"refs,omitempty"`

	LastUpdatedMs int64 `json:"last-updated-ms"`
}

// Built is the constructed form handed back to the metadata store: the
// Metadata document, which callers encode with encoding/json as the stored
// document, plus the iceberg-go table.Metadata value Build constructs from
// it with table.NewMetadata.
type Built struct {
	*Metadata
	Wire table.Metadata
}

// Aggregate is the opaque builder named in spec §9: add_partition_spec,
// set_default_partition_spec, add_sort_order, set_default_sort_order,
// set_properties, assign_uuid, build, new_from_metadata.
type Aggregate struct {
	m *Metadata
}

// NewAggregate starts a fresh aggregate for a brand-new table: schema and
// location are required by the protocol (spec §4.2, CreateTableLocationRequired).
func NewAggregate(schema *iceberg.Schema, location string, id string) *Aggregate {
	return &Aggregate{m: &Metadata{
		UUID:               id,
		Location:           location,
		Schema:             schema,
		PartitionSpecs:     []iceberg.PartitionSpec{iceberg.UnpartitionedSpec},
		DefaultSpecID:      iceberg.UnpartitionedSpec.ID(),
		SortOrders:         []table.SortOrder{table.UnsortedSortOrder},
		DefaultSortOrderID: table.UnsortedSortOrder.OrderID,
		Properties:         iceberg.Properties{},
		SnapshotRefs:       map[string]int64{},
	}}
}

// NewFromMetadata starts an aggregate from an existing, already-committed
// metadata document, for the commit engine's "derive a new aggregate from
// the current one" step (spec §4.3 step 4).
func NewFromMetadata(base *Metadata) *Aggregate {
	cp := *base
	cp.PartitionSpecs = append([]iceberg.PartitionSpec(nil), base.PartitionSpecs...)
	cp.SortOrders = append([]table.SortOrder(nil), base.SortOrders...)
	cp.Properties = cloneProps(base.Properties)
	cp.SnapshotRefs = cloneRefs(base.SnapshotRefs)
	return &Aggregate{m: &cp}
}

func cloneProps(p iceberg.Properties) iceberg.Properties {
	out := make(iceberg.Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func cloneRefs(r map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AddPartitionSpec appends a partition spec and returns its ID.
func (a *Aggregate) AddPartitionSpec(spec iceberg.PartitionSpec) int {
	a.m.PartitionSpecs = append(a.m.PartitionSpecs, spec)
	return spec.ID()
}

// SetDefaultPartitionSpec sets the default spec ID, validating it was added.
func (a *Aggregate) SetDefaultPartitionSpec(id int) error {
	for _, s := range a.m.PartitionSpecs {
		if s.ID() == id {
			a.m.DefaultSpecID = id
			return nil
		}
	}
	return fmt.Errorf("tablemeta: unknown partition spec id %d", id)
}

// AddSortOrder appends a sort order and returns its ID.
func (a *Aggregate) AddSortOrder(order table.SortOrder) int {
	a.m.SortOrders = append(a.m.SortOrders, order)
	return order.OrderID
}

// SetDefaultSortOrder sets the default sort order ID, validating it was added.
func (a *Aggregate) SetDefaultSortOrder(id int) error {
	for _, o := range a.m.SortOrders {
		if o.OrderID == id {
			a.m.DefaultSortOrderID = id
			return nil
		}
	}
	return fmt.Errorf("tablemeta: unknown sort order id %d", id)
}

// SetProperties merges the given key/value pairs into the document's
// properties (protocol semantics: a present key overwrites, absent keys
// are left alone — removal is a distinct update kind).
func (a *Aggregate) SetProperties(props map[string]string) {
	if a.m.Properties == nil {
		a.m.Properties = iceberg.Properties{}
	}
	for k, v := range props {
		a.m.Properties[k] = v
	}
}

// RemoveProperties deletes the given keys from the document's properties.
func (a *Aggregate) RemoveProperties(keys []string) {
	for _, k := range keys {
		delete(a.m.Properties, k)
	}
}

// AssignUUID implements the metadata-side half of AssignUuid; the "must
// equal current" guard lives in the AssignUUID update's Apply (update.go).
// Brand-new tables get their uuid from NewAggregate's id parameter, where
// there is no "current" to guard against.
func (a *Aggregate) AssignUUID(id string) {
	a.m.UUID = id
}

// SetLocation sets the table_location field of the document under
// construction. Like AssignUUID, the "must equal current" guard for
// already-committed tables lives in the SetLocation update's Apply
// (update.go), not here.
func (a *Aggregate) SetLocation(location string) {
	a.m.Location = location
}

// CurrentSnapshotID and SetCurrentSnapshotID expose the aggregate's single
// mutable snapshot pointer; full snapshot-list manipulation (add-snapshot,
// remove-snapshots) is delegated to the aggregate's assertion module per
// spec §9 and is intentionally not reimplemented here beyond the pointer,
// since the core's invariants never inspect snapshot contents.
func (a *Aggregate) CurrentSnapshotID() *int64 { return a.m.CurrentSnapshotID }

func (a *Aggregate) SetCurrentSnapshotID(id int64) { a.m.CurrentSnapshotID = &id }

func (a *Aggregate) SetSnapshotRef(name string, snapshotID int64) {
	if a.m.SnapshotRefs == nil {
		a.m.SnapshotRefs = map[string]int64{}
	}
	a.m.SnapshotRefs[name] = snapshotID
}

func (a *Aggregate) RemoveSnapshotRef(name string) {
	delete(a.m.SnapshotRefs, name)
}

// Metadata returns the document accumulated so far, for requirement checks
// mid-build (e.g. a requirement re-checked against the post-apply state).
func (a *Aggregate) Metadata() *Metadata { return a.m }

// Build finalizes the aggregate into a Built document, also constructing an
// iceberg-go table.Metadata from the schema, default spec, default sort
// order, location and properties; an error from that construction fails
// the build.
func (a *Aggregate) Build() (*Built, error) {
	var defaultSpec iceberg.PartitionSpec = iceberg.UnpartitionedSpec
	for _, s := range a.m.PartitionSpecs {
		if s.ID() == a.m.DefaultSpecID {
			defaultSpec = s
			break
		}
	}
	var defaultOrder table.SortOrder = table.UnsortedSortOrder
	for _, o := range a.m.SortOrders {
		if o.OrderID == a.m.DefaultSortOrderID {
			defaultOrder = o
			break
		}
	}

	wire, err := table.NewMetadata(a.m.Schema, &defaultSpec, defaultOrder, a.m.Location, a.m.Properties)
	if err != nil {
		return nil, fmt.Errorf("tablemeta: build metadata: %w", err)
	}

	return &Built{Metadata: a.m, Wire: wire}, nil
}

// NewMetadataFileLocation computes the URI of the next metadata.json file
// under the table's location, keyed by a fresh time-ordered UUID so
// concurrent commits never collide on the file name (spec §4.3 step 5).
func NewMetadataFileLocation(tableLocation string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/metadata/%s.metadata.json", tableLocation, id.String()), nil
}
