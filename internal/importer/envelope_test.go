package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLiveNDJSON_IsIdentity(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"init","session_id":"sess-1"}`)
	msg, err := FromLiveNDJSON(line)
	require.NoError(t, err)
	assert.Equal(t, line, msg)
}

func TestFromSDKRecorder_StripsEnvelope(t *testing.T) {
	line := []byte(`{"timestamp":"2026-01-15T10:00:00.5Z","direction":"recv","message":{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}}`)

	msg, ts, direction, err := FromSDKRecorder(line)
	require.NoError(t, err)
	assert.Equal(t, "recv", direction)
	assert.False(t, ts.IsZero())
	assert.Equal(t, 2026, ts.Year())
	assert.Contains(t, string(msg), `"type":"assistant"`)
}

func TestFromSDKRecorder_EmptyMessageIsNilWithoutError(t *testing.T) {
	line := []byte(`{"timestamp":"2026-01-15T10:00:00Z","direction":"send"}`)

	msg, _, direction, err := FromSDKRecorder(line)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, "send", direction)
}

func TestFromRawJSONL_FileHistorySnapshotIsMetaOnly(t *testing.T) {
	line := []byte(`{"type":"file-history-snapshot","timestamp":"2026-01-15T10:00:00Z"}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	assert.Nil(t, msg)
	require.NotNil(t, meta)
	assert.Equal(t, "file-history-snapshot", meta.Type)
}

func TestFromRawJSONL_QueueOperationCarriesOperationAndContent(t *testing.T) {
	line := []byte(`{"type":"queue-operation","operation":"enqueue","content":"run tests","timestamp":"2026-01-15T10:00:00Z"}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, "enqueue", meta.Operation)
	assert.Equal(t, "run tests", meta.Content)
}

func TestFromRawJSONL_PRLinkCarriesPRFields(t *testing.T) {
	line := []byte(`{"type":"pr-link","prNumber":42,"prUrl":"https://example.com/pr/42","prRepository":"org/repo","timestamp":"2026-01-15T10:00:00Z"}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 42, meta.PRNumber)
	assert.Equal(t, "org/repo", meta.PRRepository)
}

func TestFromRawJSONL_SystemSubtypeWithoutMessageIsMetaOnly(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"compact_boundary","content":"compacted","timestamp":"2026-01-15T10:00:00Z"}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, "compact_boundary", meta.Subtype)
	assert.Equal(t, "compacted", meta.Content)
}

func TestFromRawJSONL_SystemInitHasNoInnerMessage(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"init","sessionId":"sess-1","timestamp":"2026-01-15T10:00:00Z"}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Contains(t, string(msg), `"subtype":"init"`)
	assert.Equal(t, "sess-1", meta.SessionID)
}

func TestFromRawJSONL_AssistantWrapsInnerMessage(t *testing.T) {
	line := []byte(`{"type":"assistant","sessionId":"sess-1","parentUuid":"p-1","timestamp":"2026-01-15T10:00:00Z","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}`)

	msg, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Contains(t, string(msg), `"type":"assistant"`)
	assert.Contains(t, string(msg), `"role":"assistant"`)
	assert.Equal(t, "p-1", meta.ParentUUID)
}

func TestFromRawJSONL_ResultInjectsTypeIntoInnerObject(t *testing.T) {
	line := []byte(`{"type":"result","timestamp":"2026-01-15T10:00:00Z","message":{"subtype":"success","result":"done","duration_ms":500}}`)

	msg, _, err := FromRawJSONL(line)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Contains(t, string(msg), `"type":"result"`)
	assert.Contains(t, string(msg), `"subtype":"success"`)
}

func TestFromRawJSONL_InvalidTimestampParsesAsZero(t *testing.T) {
	line := []byte(`{"type":"file-history-snapshot"}`)

	_, meta, err := FromRawJSONL(line)
	require.NoError(t, err)
	assert.Equal(t, time.Time{}, meta.Timestamp)
}
