package api

import (
	"context"
	"net/http"

	"github.com/icebase/catalogd/internal/apperr"
	"github.com/icebase/catalogd/internal/catalogstore"
	"github.com/icebase/catalogd/internal/ident"
	"github.com/icebase/catalogd/internal/tablemeta"
)

// tableChangeWire is the wire shape of one table's requirements/updates in
// a commit_transaction request. Only the update/requirement kinds the
// commit engine itself recognizes are accepted over the wire; any other
// named kind is rejected as unsupported rather than silently ignored.
type tableChangeWire struct {
	Identifier   *identWire        `json:"identifier"`
	Requirements []requirementWire `json:"requirements"`
	Updates      []updateWire      `json:"updates"`
}

type identWire struct {
	Namespace []string `json:"namespace"`
	Name      string   `json:"name"`
}

type requirementWire struct {
	Type string `json:"type"`
	UUID string `json:"uuid,omitempty"`
}

type updateWire struct {
	Action     string            `json:"action"`
	UUID       string            `json:"uuid,omitempty"`
	Location   string            `json:"location,omitempty"`
	Updates    map[string]string `json:"updates,omitempty"`
	Removals   []string          `json:"removals,omitempty"`
	SpecID     int               `json:"spec-id,omitempty"`
	OrderID    int               `json:"order-id,omitempty"`
	SnapshotID int64             `json:"snapshot-id,omitempty"`
	RefName    string            `json:"ref-name,omitempty"`
}

type commitTransactionRequest struct {
	TableChanges []tableChangeWire `json:"table-changes"`
}

func (h *handlers) commitTransaction(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := parseWarehouseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req commitTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindBadRequest, "InvalidRequestBody", "malformed request body", err))
		return
	}

	changes := make([]catalogstore.TableChange, len(req.TableChanges))
	for i, c := range req.TableChanges {
		changes[i] = catalogstore.TableChange{
			Identifier:   toTableIdent(c.Identifier),
			Requirements: toRequirements(c.Requirements),
			Updates:      toUpdates(c.Updates),
		}
	}

	var results []catalogstore.CommitResult
	err = h.store.RunInWriteTx(r.Context(), func(ctx context.Context, tx *catalogstore.Tx) error {
		var innerErr error
		results, innerErr = tx.CommitTables(ctx, warehouseID, changes)
		return innerErr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func toRequirements(wire []requirementWire) []tablemeta.Requirement {
	out := make([]tablemeta.Requirement, 0, len(wire))
	for _, rq := range wire {
		switch rq.Type {
		case "assert-create":
			out = append(out, tablemeta.RequireNotExist{})
		case "assert-table-uuid":
			out = append(out, tablemeta.RequireUUIDMatch{UUID: rq.UUID})
		default:
			out = append(out, tablemeta.Delegated{Name: rq.Type, Check: func(*tablemeta.Metadata, bool) error {
				return apperr.New(apperr.KindBadRequest, "RequirementUnsupported", "requirement "+rq.Type+" is not supported")
			}})
		}
	}
	return out
}

func toUpdates(wire []updateWire) []tablemeta.Update {
	out := make([]tablemeta.Update, 0, len(wire))
	for _, u := range wire {
		switch u.Action {
		case "assign-uuid":
			out = append(out, tablemeta.AssignUUID{UUID: u.UUID})
		case "set-location":
			out = append(out, tablemeta.SetLocation{Location: u.Location})
		case "set-properties":
			out = append(out, tablemeta.SetProperties{Properties: u.Updates})
		case "remove-properties":
			out = append(out, tablemeta.RemoveProperties{Keys: u.Removals})
		case "set-default-spec":
			out = append(out, tablemeta.SetDefaultSpec{SpecID: u.SpecID})
		case "set-default-sort-order":
			out = append(out, tablemeta.SetDefaultSortOrder{OrderID: u.OrderID})
		case "set-current-snapshot":
			out = append(out, tablemeta.SetCurrentSnapshot{SnapshotID: u.SnapshotID})
		case "set-snapshot-ref":
			out = append(out, tablemeta.SetSnapshotRef{Name: u.RefName, SnapshotID: u.SnapshotID})
		case "remove-snapshot-ref":
			out = append(out, tablemeta.RemoveSnapshotRef{Name: u.RefName})
		default:
			out = append(out, tablemeta.DelegatedUpdate{Name: u.Action})
		}
	}
	return out
}

func toTableIdent(w *identWire) *ident.TableIdent {
	if w == nil {
		return nil
	}
	return &ident.TableIdent{Namespace: ident.Namespace(w.Namespace), Name: w.Name}
}
