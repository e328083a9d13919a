package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var replaySinceSeq uint64

var replayCmd = &cobra.Command{
	Use:   "replay <run-id>",
	Short: "Print a run's persisted event log in append order, reconnect style",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		envs, err := m.Events.ListBusEvents(args[0], replaySinceSeq)
		if err != nil {
			return fmt.Errorf("list bus events: %w", err)
		}
		for _, env := range envs {
			line, err := json.Marshal(env)
			if err != nil {
				continue
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Uint64Var(&replaySinceSeq, "since-seq", 0, "Only print events with seq greater than this")
}
