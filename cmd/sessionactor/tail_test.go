package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailFile_StopsOnContextCancelAfterReadingExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"seq\":1}\n{\"seq\":2}\n"), 0o644))

	tailPollInterval = 5 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := tailFile(ctx, path, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"seq":1`)
	assert.Contains(t, out.String(), `"seq":2`)
}

func TestTailFile_WaitsForFileToAppear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	tailPollInterval = 5 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- tailFile(ctx, path, &out) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{\"seq\":1}\n"), 0o644))

	require.NoError(t, <-done)
	assert.Contains(t, out.String(), `"seq":1`)
}
