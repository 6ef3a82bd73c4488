package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	// ErrUnknownField is returned for a field name the Configuration lacks.
	ErrUnknownField = errors.New("unknown configuration field")
	// ErrNotAppendable is returned when appending to a non-array field.
	ErrNotAppendable = errors.New("configuration field is not an array")
	// ErrFieldType is returned when a value does not fit the field's type.
	ErrFieldType = errors.New("value does not match field type")
)

// Field names used by the narrow, concurrency-friendly write paths.
const (
	FieldGuestList = "guestList"
	FieldGuestbook = "guestbook"
	FieldSyncID    = "syncId"
	FieldLastSaved = "lastSaved"
)

// Document is a remote snapshot as raw JSON keyed by field name. A key that
// is missing was not present in the remote document.
type Document map[string]json.RawMessage

// Patch holds typed field values keyed by JSON field name.
type Patch map[string]any

// Fields returns the patch keys in sorted order.
func (p Patch) Fields() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fieldInfo struct {
	index int
	typ   reflect.Type
}

var configurationFields = indexFields()

func indexFields() map[string]fieldInfo {
	t := reflect.TypeOf(Configuration{})
	out := make(map[string]fieldInfo, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = fieldInfo{index: i, typ: f.Type}
	}
	return out
}

// FieldNames lists every Configuration field name in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(configurationFields))
	for n := range configurationFields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsArrayField reports whether name is an array-valued Configuration field.
func IsArrayField(name string) bool {
	info, ok := configurationFields[name]
	return ok && info.typ.Kind() == reflect.Slice
}

func lookup(name string) (fieldInfo, error) {
	info, ok := configurationFields[name]
	if !ok {
		return fieldInfo{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return info, nil
}

// DecodePatch converts raw JSON fields into a typed Patch. Unknown fields
// are an error.
func DecodePatch(raw map[string]json.RawMessage) (Patch, error) {
	p := make(Patch, len(raw))
	for name, value := range raw {
		info, err := lookup(name)
		if err != nil {
			return nil, err
		}
		ptr := reflect.New(info.typ)
		if err := json.Unmarshal(value, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFieldType, name, err)
		}
		p[name] = ptr.Elem().Interface()
	}
	return p, nil
}

// Apply sets every patched field on c. Values are assigned, not copied.
func (c *Configuration) Apply(p Patch) error {
	v := reflect.ValueOf(c).Elem()
	for _, name := range p.Fields() {
		info, err := lookup(name)
		if err != nil {
			return err
		}
		field := v.Field(info.index)
		rv := reflect.ValueOf(p[name])
		if !rv.IsValid() {
			field.Set(reflect.Zero(info.typ))
			continue
		}
		if !rv.Type().AssignableTo(info.typ) {
			return fmt.Errorf("%w: %s expects %s, got %T", ErrFieldType, name, info.typ, p[name])
		}
		field.Set(rv)
	}
	return nil
}

// Overlay returns a copy of base with every known field present in doc
// replaced by the document's value. Fields doc does not carry keep base's
// value; fields base does not know are ignored.
func Overlay(base *Configuration, doc Document) (*Configuration, error) {
	known := make(map[string]json.RawMessage, len(doc))
	for name, raw := range doc {
		if _, ok := configurationFields[name]; ok {
			known[name] = raw
		}
	}
	p, err := DecodePatch(known)
	if err != nil {
		return nil, err
	}
	out := base.Clone()
	if err := out.Apply(p); err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentOf renders c in the wire form used by snapshots.
func DocumentOf(c *Configuration) (Document, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to split configuration: %w", err)
	}
	for name, raw := range doc {
		if IsArrayField(name) && isNull(raw) {
			doc[name] = emptyArray()
		}
	}
	return doc, nil
}

// EncodeField renders v as the stored value of field name. A nil array is
// written as [] so the field stays present and empty.
func EncodeField(name string, v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if IsArrayField(name) && isNull(raw) {
		return emptyArray(), nil
	}
	return raw, nil
}

func emptyArray() json.RawMessage { return json.RawMessage(`[]`) }

func isNull(raw json.RawMessage) bool { return string(raw) == "null" }

// Decode parses a complete document into a Configuration.
func (d Document) Decode() (*Configuration, error) {
	return Overlay(&Configuration{}, d)
}

// DecodeElement parses raw as one element of the array field name.
func DecodeElement(name string, raw json.RawMessage) (any, error) {
	info, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if info.typ.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: %q", ErrNotAppendable, name)
	}
	ptr := reflect.New(info.typ.Elem())
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("%w: %s element: %v", ErrFieldType, name, err)
	}
	return ptr.Elem().Interface(), nil
}

// CheckElement verifies value can be appended to the array field name.
func CheckElement(name string, value any) error {
	info, err := lookup(name)
	if err != nil {
		return err
	}
	if info.typ.Kind() != reflect.Slice {
		return fmt.Errorf("%w: %q", ErrNotAppendable, name)
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || !rv.Type().AssignableTo(info.typ.Elem()) {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrFieldType, name, info.typ.Elem(), value)
	}
	return nil
}

// AppendTo appends value to the array field name.
func (c *Configuration) AppendTo(name string, value any) error {
	if err := CheckElement(name, value); err != nil {
		return err
	}
	info := configurationFields[name]
	field := reflect.ValueOf(c).Elem().Field(info.index)
	field.Set(reflect.Append(field, reflect.ValueOf(value)))
	return nil
}
