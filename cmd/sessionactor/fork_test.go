package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractForkSessionID_Object(t *testing.T) {
	sid, err := extractForkSessionID([]byte(`{"type":"result","subtype":"success","session_id":"sess-forked","result":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, "sess-forked", sid)
}

func TestExtractForkSessionID_ArrayPrefersLastWithSessionID(t *testing.T) {
	out := []byte(`[{"type":"system","subtype":"init"},{"type":"result","session_id":"sess-forked"}]`)
	sid, err := extractForkSessionID(out)
	require.NoError(t, err)
	assert.Equal(t, "sess-forked", sid)
}

func TestExtractForkSessionID_MissingIsError(t *testing.T) {
	_, err := extractForkSessionID([]byte(`{"type":"result","subtype":"success"}`))
	assert.Error(t, err)
}

func TestExtractForkSessionID_UnparsableIsError(t *testing.T) {
	_, err := extractForkSessionID([]byte(`not json`))
	assert.Error(t, err)
}

func TestStripClaudeCodeEnv_RemovesOnlyThatVar(t *testing.T) {
	env := []string{"PATH=/usr/bin", "CLAUDECODE=1", "HOME=/root"}
	stripped := stripClaudeCodeEnv(env)
	assert.ElementsMatch(t, []string{"PATH=/usr/bin", "HOME=/root"}, stripped)
}

func TestStripClaudeCodeEnv_NoMatchLeavesEnvUnchanged(t *testing.T) {
	env := []string{"PATH=/usr/bin", "HOME=/root"}
	stripped := stripClaudeCodeEnv(env)
	assert.ElementsMatch(t, env, stripped)
}
