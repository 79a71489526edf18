package domain

import "encoding/json"

// Bean is one entry of a response entry_list: a remote record carrying an
// id, its module name and a name_value_list of attributes.
//
//	{"id": "...", "module_name": "Contacts",
//	 "name_value_list": {"last_name": {"name": "last_name", "value": "Doe"}, ...}}
type Bean struct {
	entry Value
}

// NewBean wraps a response entry.
func NewBean(entry Value) Bean { return Bean{entry: entry} }

// Entry returns the wrapped response entry unchanged.
func (b Bean) Entry() Value { return b.entry }

// ID returns the record id, or "" when absent.
func (b Bean) ID() string {
	return b.text("id")
}

// ModuleName returns the module the record belongs to, or "" when absent.
func (b Bean) ModuleName() string {
	return b.text("module_name")
}

// Field returns the value of the named attribute from name_value_list.
func (b Bean) Field(name string) (Value, bool) {
	return b.entry.Path("name_value_list", name, "value")
}

// FieldText returns the named attribute as text, or "" when absent.
func (b Bean) FieldText(name string) string {
	v, ok := b.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}

// Fields returns all attributes of name_value_list as text, keyed by name.
func (b Bean) Fields() map[string]string {
	nvl, ok := b.entry.Field("name_value_list")
	if !ok {
		return nil
	}
	obj, ok := nvl.Raw().(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for name := range obj {
		out[name] = b.FieldText(name)
	}
	return out
}

// DeletedFlag returns the integer value of the soft-delete attribute. It
// reports false when the attribute is absent or not a scalar.
func (b Bean) DeletedFlag() (int64, bool) {
	v, ok := b.Field("deleted")
	if !ok {
		return 0, false
	}
	return v.Int()
}

// MarshalJSON encodes the wrapped entry verbatim.
func (b Bean) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.entry)
}

func (b Bean) text(name string) string {
	v, ok := b.entry.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}
