package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <run-id>",
	Short: "Stop a live run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.StopSession(args[0]); err != nil {
			return fmt.Errorf("stop session: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
