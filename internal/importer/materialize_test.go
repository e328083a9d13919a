package importer

import (
	"strings"
	"testing"

	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_LiveNDJSON(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	transcript := strings.Join([]string{
		`{"type":"system","subtype":"init","session_id":"sess-1","cwd":"/work"}`,
		`{"type":"user","message":{"role":"user","content":"hello"}}`,
		`{"type":"result","subtype":"success","result":"done","duration_ms":100}`,
	}, "\n")

	res, err := Materialize(strings.NewReader(transcript), FormatLiveNDJSON, "run-1", false, w)
	require.NoError(t, err)
	assert.Equal(t, 3, res.LinesRead)
	assert.Greater(t, res.EventsWritten, 0)

	envs, err := w.ListBusEvents("run-1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, envs)
}

func TestMaterialize_SDKRecorder(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	transcript := strings.Join([]string{
		`{"timestamp":"2026-01-15T10:00:00Z","direction":"recv","message":{"type":"system","subtype":"init","session_id":"sess-1"}}`,
		`{"timestamp":"2026-01-15T10:00:01Z","direction":"send"}`,
	}, "\n")

	res, err := Materialize(strings.NewReader(transcript), FormatSDKRecorder, "run-1", false, w)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LinesRead)

	envs, err := w.ListBusEvents("run-1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, envs)
	assert.Equal(t, "2026-01-15T10:00:00Z", envs[0].TS.UTC().Format("2006-01-02T15:04:05Z"))
}

func TestMaterialize_RawJSONL_SkipsMetaOnlyEntries(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	transcript := strings.Join([]string{
		`{"type":"file-history-snapshot","timestamp":"2026-01-15T10:00:00Z"}`,
		`{"type":"system","subtype":"init","sessionId":"sess-1","timestamp":"2026-01-15T10:00:01Z"}`,
	}, "\n")

	res, err := Materialize(strings.NewReader(transcript), FormatRawJSONL, "run-1", false, w)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LinesRead)
	assert.Equal(t, 1, res.MetaOnlyLines)
	assert.Greater(t, res.EventsWritten, 0)
}

func TestMaterialize_BlankLinesSkipped(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	transcript := "\n\n" + `{"type":"system","subtype":"init","session_id":"sess-1"}` + "\n\n"

	res, err := Materialize(strings.NewReader(transcript), FormatLiveNDJSON, "run-1", false, w)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LinesRead)
	assert.Equal(t, 3, res.SkippedBlank)
}

func TestMaterialize_ResumeDoesNotSynthesizeRunningState(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	transcript := `{"type":"system","subtype":"init","session_id":"sess-1"}`

	res, err := Materialize(strings.NewReader(transcript), FormatLiveNDJSON, "run-1", true, w)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsWritten)
}

func TestMaterialize_UnknownFormatIsError(t *testing.T) {
	w := eventlog.NewWriter(t.TempDir())
	_, err := Materialize(strings.NewReader("{}"), Format("bogus"), "run-1", false, w)
	assert.Error(t, err)
}

func TestDetectFormat_RawJSONLHasSessionID(t *testing.T) {
	line := []byte(`{"type":"assistant","sessionId":"sess-1","message":{}}`)
	assert.Equal(t, FormatRawJSONL, DetectFormat(line))
}

func TestDetectFormat_SDKRecorderHasDirectionAndMessage(t *testing.T) {
	line := []byte(`{"timestamp":"2026-01-15T10:00:00Z","direction":"recv","message":{"type":"system"}}`)
	assert.Equal(t, FormatSDKRecorder, DetectFormat(line))
}

func TestDetectFormat_DefaultsToLiveNDJSON(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"init"}`)
	assert.Equal(t, FormatLiveNDJSON, DetectFormat(line))
}
