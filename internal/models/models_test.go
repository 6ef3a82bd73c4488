package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_PartialDocumentKeepsDefaults(t *testing.T) {
	doc := Document{
		"brideName": json.RawMessage(`"Anna"`),
		"guestList": json.RawMessage(`[{"name":"Jane Doe","guests":"1","attending":"yes"}]`),
		"legacy":    json.RawMessage(`{"ignored":true}`),
	}

	out, err := Overlay(DefaultConfiguration(), doc)
	require.NoError(t, err)

	assert.Equal(t, "Anna", out.BrideName)
	assert.Equal(t, "classic", out.Theme)
	assert.Equal(t, DefaultSectionOrder, out.SectionOrder)
	require.Len(t, out.GuestList, 1)
	assert.Equal(t, "Jane Doe", out.GuestList[0].Name)
}

func TestOverlay_DoesNotMutateBase(t *testing.T) {
	base := DefaultConfiguration()
	base.Colors = []string{"#000"}

	_, err := Overlay(base, Document{"colors": json.RawMessage(`["#fff","#eee"]`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"#000"}, base.Colors)
}

func TestDecodePatch_UnknownField(t *testing.T) {
	_, err := DecodePatch(map[string]json.RawMessage{"nope": json.RawMessage(`1`)})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestApply_TypeMismatch(t *testing.T) {
	cfg := &Configuration{}
	err := cfg.Apply(Patch{FieldSyncID: 42})
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestApply_SetsTypedValues(t *testing.T) {
	cfg := &Configuration{}
	require.NoError(t, cfg.Apply(Patch{
		FieldSyncID:    "123",
		FieldGuestList: []GuestEntry{{Name: "Tom", Guests: "1", Attending: AttendingNo}},
	}))
	assert.Equal(t, "123", cfg.SyncID)
	assert.Equal(t, "Tom", cfg.GuestList[0].Name)
}

func TestAppendTo(t *testing.T) {
	cfg := &Configuration{}
	require.NoError(t, cfg.AppendTo(FieldGuestbook, GuestbookMessage{ID: "a", Name: "X", Message: "hi"}))
	assert.Len(t, cfg.Guestbook, 1)

	assert.ErrorIs(t, cfg.AppendTo("brideName", "x"), ErrNotAppendable)
	assert.ErrorIs(t, cfg.AppendTo(FieldGuestList, "not a guest"), ErrFieldType)
	assert.ErrorIs(t, cfg.AppendTo("missing", 1), ErrUnknownField)
}

func TestDecodeElement(t *testing.T) {
	v, err := DecodeElement(FieldGuestList, json.RawMessage(`{"name":"Ann","guests":"2","attending":"yes","extraGuestNames":["Bo"]}`))
	require.NoError(t, err)
	g, ok := v.(GuestEntry)
	require.True(t, ok)
	assert.Equal(t, 2, g.HeadCount())
}

func TestClone_IsDeep(t *testing.T) {
	orig := &Configuration{
		GuestList: []GuestEntry{{Name: "A", ExtraGuestNames: []string{"B"}}},
		Guestbook: []GuestbookMessage{{ID: "1", Reactions: map[string]int{"❤️": 1}}},
	}
	cp := orig.Clone()
	cp.GuestList[0].ExtraGuestNames[0] = "changed"
	cp.Guestbook[0].Reactions["❤️"] = 5

	assert.Equal(t, "B", orig.GuestList[0].ExtraGuestNames[0])
	assert.Equal(t, 1, orig.Guestbook[0].Reactions["❤️"])
}

func TestSnapshot_WireRoundTrip(t *testing.T) {
	snap, err := DocumentSnapshot(&Configuration{SyncID: "99", BrideName: "Anna"})
	require.NoError(t, err)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"document"`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, SnapshotDocument, back.Kind)
	assert.Equal(t, "99", back.SyncID())

	var denied Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"type":"error","reason":"permission-denied"}`), &denied))
	assert.Equal(t, SnapshotError, denied.Kind)
	assert.Equal(t, ReasonPermissionDenied, denied.Reason)
}

func TestHeadCount(t *testing.T) {
	assert.Equal(t, 3, GuestEntry{Guests: "3"}.HeadCount())
	assert.Equal(t, 1, GuestEntry{Guests: ""}.HeadCount())
	assert.Equal(t, 1, GuestEntry{Guests: "0"}.HeadCount())
	assert.Equal(t, 1, GuestEntry{Guests: "many"}.HeadCount())
}

func TestDocumentOf_ClearedFieldsStayPresent(t *testing.T) {
	cleared := DefaultConfiguration()
	cleared.Theme = ""
	cleared.Colors = []string{}
	cleared.SectionOrder = nil

	doc, err := DocumentOf(cleared)
	require.NoError(t, err)
	assert.JSONEq(t, `""`, string(doc["theme"]))
	assert.JSONEq(t, `[]`, string(doc["colors"]))
	assert.JSONEq(t, `[]`, string(doc["sectionOrder"]))
	assert.JSONEq(t, `[]`, string(doc[FieldGuestList]))
	_, ok := doc[FieldSyncID]
	assert.False(t, ok)

	out, err := Overlay(DefaultConfiguration(), doc)
	require.NoError(t, err)
	assert.Empty(t, out.Theme)
	assert.Empty(t, out.Colors)
	assert.Empty(t, out.SectionOrder)
}
