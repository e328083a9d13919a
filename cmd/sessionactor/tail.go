package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var tailPollInterval time.Duration

// tailCmd follows a run's persisted events.jsonl file as it grows, the
// same layout spec.md §6 names (<data-dir>/events/<run-id>/events.jsonl).
// It reads directly off disk rather than through internal/eventlog so it
// works against a run being supervised by a different process entirely.
var tailCmd = &cobra.Command{
	Use:   "tail <run-id>",
	Short: "Follow a run's event log as new lines are appended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(dataDir, "events", args[0], "events.jsonl")
		return tailFile(cmd.Context(), path, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().DurationVar(&tailPollInterval, "poll", 250*time.Millisecond, "How often to check for new lines")
}

func tailFile(ctx context.Context, path string, out io.Writer) error {
	var f *os.File
	for {
		var err error
		f, err = os.Open(path)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("open event log: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tailPollInterval):
		}
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			fmt.Fprint(out, line)
		}
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(tailPollInterval):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read event log: %w", err)
		}
	}
}
