package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	line, err := Encode(&Start{InstanceID: "run-1", Timestamp: 1, Payload: map[string]any{"name": "steve"}})
	require.Nil(t, err)
	assert.Equal(t, `{"type":"WF_START","instanceId":"run-1","timestamp":1,"payload":{"name":"steve"}}`, line)

	kind, ok := Match(line)
	assert.True(t, ok)
	assert.Equal(t, KindStart, kind)

	r, err := Decode("stdout: " + line)
	require.Nil(t, err)
	start, ok := r.(*Start)
	require.True(t, ok)
	assert.Equal(t, "run-1", start.InstanceID)
	assert.Equal(t, map[string]any{"name": "steve"}, start.Payload)
}

func TestDecodeRepairsTruncatedLine(t *testing.T) {
	r, err := Decode(`{"type":"WF_NODE_END","nodeId":"n2","timestamp":7,"success":true`)
	require.Nil(t, err)
	end, ok := r.(*NodeEnd)
	require.True(t, ok)
	assert.Equal(t, "n2", end.NodeID)
	assert.True(t, end.Success)
}

func TestDecodeWithoutMarker(t *testing.T) {
	_, err := Decode("GET /health 200")
	assert.NotNil(t, err)
}

func TestSummarize(t *testing.T) {
	lines := make([]string, 0)
	for _, r := range []Record{
		&Start{InstanceID: "run-9", Timestamp: 100},
		&NodeStart{NodeID: "n1", NodeLabel: "Entry", NodeType: "entry", Timestamp: 101},
		&NodeEnd{NodeID: "n1", Timestamp: 102, Success: true},
		&NodeStart{NodeID: "n2", NodeLabel: "Fetch", NodeType: "http-request", Timestamp: 103},
		&NodeError{NodeID: "n2", Timestamp: 104, Error: "connect refused"},
	} {
		line, err := Encode(r)
		require.Nil(t, err)
		lines = append(lines, line)
	}
	lines = append(lines, "Error: connect refused", "    at run (worker.js:10)")

	records, err := DecodeAll(strings.Join(lines, "\n"))
	require.Nil(t, err)
	require.Len(t, records, 5)

	s := Summarize(records)
	assert.Equal(t, "run-9", s.InstanceID)
	assert.False(t, s.Finished)
	assert.True(t, s.Failed)
	require.Len(t, s.Nodes, 2)
	assert.Equal(t, NodeSucceeded, s.Nodes[0].Status)
	assert.Equal(t, NodeFailed, s.Nodes[1].Status)
	assert.Equal(t, "connect refused", s.Nodes[1].Error)
	assert.Equal(t, int64(104), s.Nodes[1].EndedAt)
}

func TestSummarizeFinishedRun(t *testing.T) {
	s := Summarize([]Record{
		&Start{InstanceID: "run-1", Timestamp: 1},
		&NodeStart{NodeID: "n1", Timestamp: 2},
		&NodeEnd{NodeID: "n1", Timestamp: 3, Success: true},
		&End{Timestamp: 4, Results: map[string]any{"n1": "ok"}},
	})
	assert.True(t, s.Finished)
	assert.False(t, s.Failed)
	assert.Equal(t, int64(4), s.EndedAt)
	assert.Equal(t, map[string]any{"n1": "ok"}, s.Results)
}
