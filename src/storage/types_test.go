package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/src/convert"
)

func TestJSONToolCallsColumn(t *testing.T) {
	calls := JSONToolCalls{
		{Name: "getTasks", Args: json.RawMessage(`{"filter":"open"}`), ToolCallID: "c1"},
	}

	value, err := calls.Value()
	require.NoError(t, err)

	var scanned JSONToolCalls
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, "getTasks", scanned[0].Name)
	assert.Equal(t, "c1", scanned[0].ToolCallID)
	assert.JSONEq(t, `{"filter":"open"}`, string(scanned[0].Args))
}

func TestJSONColumnsEmptyAndNil(t *testing.T) {
	var calls JSONToolCalls
	value, err := calls.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var scanned JSONToolCalls
	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	require.NoError(t, scanned.Scan(""))
	assert.Empty(t, scanned)

	var results JSONToolResults
	require.NoError(t, results.Scan(`[{"toolCallId":"c1","toolName":"getTasks"}]`))
	require.Len(t, results, 1)
	assert.Equal(t, convert.StoredToolResult{ToolCallID: "c1", ToolName: "getTasks"}, results[0])
}

func TestJSONMapColumn(t *testing.T) {
	m := JSONMap{"source": "inbox", "count": 3.0}
	value, err := m.Value()
	require.NoError(t, err)

	var scanned JSONMap
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "inbox", scanned["source"])
	assert.Equal(t, 3.0, scanned["count"])

	var empty JSONMap
	value, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", value)
}

func TestJSONStringArrayScanRejectsUnknownType(t *testing.T) {
	var arr JSONStringArray
	assert.Error(t, arr.Scan(42))
}
