package domain

import (
	"encoding/json"
	"testing"
)

const contactEntry = `{
	"id": "c-1",
	"module_name": "Contacts",
	"name_value_list": {
		"last_name": {"name": "last_name", "value": "Doe"},
		"deleted": {"name": "deleted", "value": "0"}
	}
}`

func TestBeanAccessors(t *testing.T) {
	b := NewBean(Decode([]byte(contactEntry)))

	if got := b.ID(); got != "c-1" {
		t.Errorf("ID() = %q, want %q", got, "c-1")
	}
	if got := b.ModuleName(); got != "Contacts" {
		t.Errorf("ModuleName() = %q, want %q", got, "Contacts")
	}
	if got := b.FieldText("last_name"); got != "Doe" {
		t.Errorf("FieldText(last_name) = %q, want %q", got, "Doe")
	}
	if got := b.FieldText("missing"); got != "" {
		t.Errorf("FieldText(missing) = %q, want empty", got)
	}

	fields := b.Fields()
	if len(fields) != 2 || fields["deleted"] != "0" {
		t.Errorf("Fields() = %v", fields)
	}

	flag, ok := b.DeletedFlag()
	if !ok || flag != 0 {
		t.Errorf("DeletedFlag() = %d, %v; want 0, true", flag, ok)
	}
}

func TestBeanDeletedFlagMissing(t *testing.T) {
	b := NewBean(Decode([]byte(`{"id":"x","name_value_list":{}}`)))
	if _, ok := b.DeletedFlag(); ok {
		t.Error("DeletedFlag() should report false when attribute is absent")
	}
	if b.Fields() == nil {
		t.Error("Fields() should be non-nil for an empty name_value_list")
	}

	empty := Bean{}
	if empty.ID() != "" || empty.Fields() != nil {
		t.Error("zero Bean should have no id and no fields")
	}
}

func TestBeanMarshalVerbatim(t *testing.T) {
	b := NewBean(Decode([]byte(contactEntry)))
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got, want map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal got: %v", err)
	}
	if err := json.Unmarshal([]byte(contactEntry), &want); err != nil {
		t.Fatalf("Unmarshal want: %v", err)
	}
	if got["id"] != want["id"] || got["module_name"] != want["module_name"] {
		t.Errorf("marshalled bean = %s", data)
	}
}
