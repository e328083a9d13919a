package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sendAttachments []string

var sendCmd = &cobra.Command{
	Use:   "send <run-id> <text>",
	Short: "Send a user turn to a live run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.SendSessionMessage(args[0], args[1], sendAttachments); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringSliceVar(&sendAttachments, "attach", nil, "Comma-separated attachment paths")
}
