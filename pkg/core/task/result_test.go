package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_NamedConstructors(t *testing.T) {
	assert.Equal(t, 0, None().Total())

	r := WithData([]map[string]any{{"a": 1}, {"a": 2}})
	assert.Equal(t, 2, r.Total())
	assert.Len(t, r.Data(), 2)

	r = WithRow(map[string]any{"a": 1})
	assert.Equal(t, 1, r.Total())
	require.Len(t, r.Data(), 1)
	assert.Equal(t, map[string]any{"a": 1}, r.Data()[0])

	assert.Equal(t, 7, WithTotal(7).Total())
	assert.Equal(t, "磁盘已满", WithError("磁盘已满").ErrorMessage())
	assert.Equal(t, "索引即将过期", WithWarning("索引即将过期").Warning())

	raw := Raw(map[string]any{"version": "1.0"})
	assert.True(t, raw.HasRaw())
	assert.Equal(t, map[string]any{"version": "1.0"}, raw.RawPayload())
}

func TestResult_BuilderChaining(t *testing.T) {
	r := None().
		AddColumn("id", "bigint").
		AddColumn("name", "string").
		AddRow(map[string]any{"id": 1, "name": "alpha"}).
		AddRow(map[string]any{"id": 2, "name": "beta"})

	assert.Equal(t, 2, r.Total())
	require.Len(t, r.Columns(), 2)
	assert.Equal(t, Column{Name: "id", Type: "bigint"}, r.Columns()[0])
}

func TestResult_MarshalStructured(t *testing.T) {
	r := WithRow(map[string]any{"a": 1}).AddColumn("a", "int")

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.EqualValues(t, 1, decoded["total"])
	assert.Equal(t, "", decoded["error"])
	assert.Equal(t, "", decoded["warning"])
	assert.NotNil(t, decoded["columns"])
	assert.NotNil(t, decoded["data"])
}

func TestResult_MarshalRawSuppressesStructuredFields(t *testing.T) {
	r := Raw([]any{"plain", "payload"})

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `["plain","payload"]`, string(out))
	assert.NotContains(t, string(out), "total")
}

func TestResult_EmptyMarshalHasAllFields(t *testing.T) {
	out, err := json.Marshal(None())
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"error":"","warning":"","columns":[],"data":[]}`, string(out))
}
