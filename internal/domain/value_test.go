package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNoResult(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`{"id":`,
		`null`,
		`false`,
		`0`,
		`0.0`,
		`""`,
		`"0"`,
		`[]`,
		`{} {}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			v := Decode([]byte(body))
			assert.True(t, v.IsNone(), "Decode(%q) kind = %s", body, v.Kind())
		})
	}
}

func TestDecodeKinds(t *testing.T) {
	tests := []struct {
		body string
		want Kind
	}{
		{`{}`, KindObject},
		{`{"id":"abc"}`, KindObject},
		{`[1]`, KindArray},
		{`"abc"`, KindScalar},
		{`1`, KindScalar},
		{`true`, KindScalar},
		{"  {\"id\":\"x\"}\n", KindObject},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode([]byte(tt.body)).Kind())
		})
	}
}

func TestValueField(t *testing.T) {
	v := Decode([]byte(`{"id":"abc","nested":{"n":null},"list":[{"a":1}]}`))

	id, ok := v.Field("id")
	require.True(t, ok)
	s, ok := id.Text()
	require.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = v.Field("missing")
	assert.False(t, ok)

	n, ok := v.Path("nested", "n")
	require.True(t, ok, "present null member must be found")
	assert.Equal(t, KindScalar, n.Kind())

	list, ok := v.Field("list")
	require.True(t, ok)
	assert.Equal(t, KindArray, list.Kind())
	assert.Equal(t, 1, list.Len())
	first, ok := list.Index(0)
	require.True(t, ok)
	assert.Equal(t, KindObject, first.Kind())
	_, ok = list.Index(1)
	assert.False(t, ok)
	assert.Len(t, list.Items(), 1)

	_, ok = NoResult.Field("id")
	assert.False(t, ok)
	assert.Nil(t, v.Items())
}

func TestValueInt(t *testing.T) {
	tests := []struct {
		body string
		want int64
	}{
		{`{"v":0}`, 0},
		{`{"v":1}`, 1},
		{`{"v":"0"}`, 0},
		{`{"v":"1"}`, 1},
		{`{"v":"  42abc"}`, 42},
		{`{"v":"-3"}`, -3},
		{`{"v":"abc"}`, 0},
		{`{"v":""}`, 0},
		{`{"v":2.9}`, 2},
		{`{"v":true}`, 1},
		{`{"v":false}`, 0},
		{`{"v":null}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			v, ok := Decode([]byte(tt.body)).Field("v")
			require.True(t, ok)
			n, ok := v.Int()
			require.True(t, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestValueIntRejectsContainers(t *testing.T) {
	_, ok := Decode([]byte(`{"a":1}`)).Int()
	assert.False(t, ok)
	_, ok = Decode([]byte(`[1]`)).Int()
	assert.False(t, ok)
	_, ok = NoResult.Int()
	assert.False(t, ok)
}

func TestValueMarshalJSON(t *testing.T) {
	v := Decode([]byte(`{"id":"abc","n":12345678901234567890}`))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","n":12345678901234567890}`, string(data))

	data, err = json.Marshal(NoResult)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "array", KindArray.String())
	assert.Equal(t, "scalar", KindScalar.String())
}
