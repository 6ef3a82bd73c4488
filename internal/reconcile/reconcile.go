// Package reconcile decides how much of an incoming remote snapshot may
// overwrite local state.
package reconcile

import (
	"encoding/json"
	"fmt"

	"wedding-site/internal/models"
)

// Mode is the merge applied to a snapshot.
type Mode int

const (
	// Unchanged leaves local state as it was.
	Unchanged Mode = iota
	// FullMerge replaces local state with the defaults overlaid by every
	// field of the remote document.
	FullMerge
	// PartialMerge keeps local state and only takes the remote guest list.
	PartialMerge
)

func (m Mode) String() string {
	switch m {
	case FullMerge:
		return "full"
	case PartialMerge:
		return "partial"
	default:
		return "unchanged"
	}
}

// Input is everything a reconciliation depends on.
type Input struct {
	Local    *models.Configuration
	Defaults *models.Configuration
	Snapshot models.Snapshot
	// HasEverSynced is true once a full merge has happened on the current
	// subscription.
	HasEverSynced bool
	// Privileged is true while the admin edit surface is open.
	Privileged bool
}

// Result is the outcome of one reconciliation.
type Result struct {
	Config        *models.Configuration
	Mode          Mode
	HasEverSynced bool
	// PermissionDenied is set when the snapshot reported a read denial.
	PermissionDenied bool
	// Err is a non-permission subscription error, to be logged only.
	Err error
}

// Reconcile merges in.Snapshot into in.Local. It never mutates its inputs.
func Reconcile(in Input) (Result, error) {
	res := Result{Config: in.Local, Mode: Unchanged, HasEverSynced: in.HasEverSynced}

	switch in.Snapshot.Kind {
	case models.SnapshotNoData:
		return res, nil

	case models.SnapshotError:
		if in.Snapshot.Reason == models.ReasonPermissionDenied {
			res.PermissionDenied = true
			return res, nil
		}
		res.Err = fmt.Errorf("subscription error (%s): %s", in.Snapshot.Reason, in.Snapshot.Detail)
		return res, nil

	case models.SnapshotNotFound:
		// A document that vanishes after the first sync is treated as a
		// transient read and never wipes local state.
		if in.HasEverSynced {
			return res, nil
		}
		res.Config = in.Defaults.Clone()
		res.Mode = FullMerge
		res.HasEverSynced = true
		return res, nil

	case models.SnapshotDocument:
		if !in.HasEverSynced || !in.Privileged || in.Local == nil {
			merged, err := models.Overlay(in.Defaults, in.Snapshot.Document)
			if err != nil {
				return res, fmt.Errorf("full merge: %w", err)
			}
			res.Config = merged
			res.Mode = FullMerge
			res.HasEverSynced = true
			return res, nil
		}

		list, err := remoteGuestList(in.Snapshot.Document, in.Defaults)
		if err != nil {
			return res, fmt.Errorf("partial merge: %w", err)
		}
		merged := in.Local.Clone()
		merged.GuestList = list
		res.Config = merged
		res.Mode = PartialMerge
		return res, nil
	}

	return res, fmt.Errorf("unknown snapshot kind %s", in.Snapshot.Kind)
}

// remoteGuestList returns the document's guest list, or the default one
// when the document carries none.
func remoteGuestList(doc models.Document, defaults *models.Configuration) ([]models.GuestEntry, error) {
	raw, ok := doc[models.FieldGuestList]
	if !ok {
		return defaults.Clone().GuestList, nil
	}
	var list []models.GuestEntry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
