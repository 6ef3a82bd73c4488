package models

import (
	"encoding/json"
	"fmt"
)

// SnapshotKind tags what a subscription delivered.
type SnapshotKind int

const (
	// SnapshotNoData means nothing has arrived yet.
	SnapshotNoData SnapshotKind = iota
	// SnapshotDocument carries the full current document.
	SnapshotDocument
	// SnapshotNotFound means the document does not exist.
	SnapshotNotFound
	// SnapshotError carries a machine-readable failure reason.
	SnapshotError
)

var snapshotKindNames = map[SnapshotKind]string{
	SnapshotNoData:   "no_data",
	SnapshotDocument: "document",
	SnapshotNotFound: "not_found",
	SnapshotError:    "error",
}

func (k SnapshotKind) String() string {
	if s, ok := snapshotKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("SnapshotKind(%d)", int(k))
}

// ErrorReason classifies subscription failures.
type ErrorReason string

const (
	ReasonPermissionDenied ErrorReason = "permission-denied"
	ReasonUnavailable      ErrorReason = "unavailable"
	ReasonInternal         ErrorReason = "internal"
)

// Snapshot is one delivery on the subscription channel.
type Snapshot struct {
	Kind     SnapshotKind
	Document Document
	Reason   ErrorReason
	Detail   string
}

// DocumentSnapshot wraps a configuration as a document delivery.
func DocumentSnapshot(c *Configuration) (Snapshot, error) {
	doc, err := DocumentOf(c)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Kind: SnapshotDocument, Document: doc}, nil
}

// ErrorSnapshot builds an error delivery.
func ErrorSnapshot(reason ErrorReason, detail string) Snapshot {
	return Snapshot{Kind: SnapshotError, Reason: reason, Detail: detail}
}

// SyncID returns the broadcast token carried by a document snapshot.
func (s Snapshot) SyncID() string {
	raw, ok := s.Document[FieldSyncID]
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}

type wireSnapshot struct {
	Type     string      `json:"type"`
	Document Document    `json:"document,omitempty"`
	Reason   ErrorReason `json:"reason,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

// MarshalJSON encodes the websocket frame form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSnapshot{
		Type:     s.Kind.String(),
		Document: s.Document,
		Reason:   s.Reason,
		Detail:   s.Detail,
	})
}

// UnmarshalJSON decodes the websocket frame form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for kind, name := range snapshotKindNames {
		if name == w.Type {
			*s = Snapshot{Kind: kind, Document: w.Document, Reason: w.Reason, Detail: w.Detail}
			return nil
		}
	}
	return fmt.Errorf("unknown snapshot type %q", w.Type)
}
