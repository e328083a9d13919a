package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bazelment/sessioncore/internal/adapter"
	"github.com/bazelment/sessioncore/internal/sessioncmd"
)

var (
	spawnAgent        string
	spawnCWD          string
	spawnModel        string
	spawnAllowedTools []string
	spawnPlanMode     bool
	spawnRemoteHost   string
	spawnRemoteCWD    string
	spawnPlatformID   string
	spawnResume       string
	spawnContinue     bool
	spawnWait         time.Duration
)

var spawnCmd = &cobra.Command{
	Use:   "spawn [prompt]",
	Short: "Start a new session run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		m, err := newManager()
		if err != nil {
			return err
		}
		recoverOrphans(m, log)

		cwd := spawnCWD
		if cwd == "" {
			cwd, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve cwd: %w", err)
			}
		}

		mode := adapter.ModeNew
		sessionID := ""
		switch {
		case spawnResume != "":
			mode = adapter.ModeResume
			sessionID = spawnResume
		case spawnContinue:
			mode = adapter.ModeContinue
		}

		runID := uuid.NewString()
		meta := &sessioncmd.RunMeta{
			RunID:          runID,
			Agent:          spawnAgent,
			Prompt:         args[0],
			CWD:            cwd,
			Model:          spawnModel,
			SessionID:      sessionID,
			RemoteHostName: spawnRemoteHost,
			RemoteCWD:      spawnRemoteCWD,
			PlatformID:     spawnPlatformID,
			Status:         sessioncmd.RunStatusPending,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		agent := adapter.AgentOverrides{
			AllowedTools: spawnAllowedTools,
			PlanMode:     spawnPlanMode,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := m.StartSession(ctx, meta, agent, "", mode); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		fmt.Println(runID)

		if meta.Prompt != "" {
			if err := m.SendSessionMessage(runID, meta.Prompt, nil); err != nil {
				return fmt.Errorf("send initial prompt: %w", err)
			}
		}

		if spawnWait > 0 {
			time.Sleep(spawnWait)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(spawnCmd)
	spawnCmd.Flags().StringVar(&spawnAgent, "agent", "claude", "Agent name whose overrides this run uses")
	spawnCmd.Flags().StringVar(&spawnCWD, "cwd", "", "Working directory (default: current directory)")
	spawnCmd.Flags().StringVar(&spawnModel, "model", "", "Model override")
	spawnCmd.Flags().StringSliceVar(&spawnAllowedTools, "allowed-tools", nil, "Comma-separated allowed tool names")
	spawnCmd.Flags().BoolVar(&spawnPlanMode, "plan", false, "Start in plan permission mode")
	spawnCmd.Flags().StringVar(&spawnRemoteHost, "remote-host", "", "Named remote host to spawn on (see --hosts)")
	spawnCmd.Flags().StringVar(&spawnRemoteCWD, "remote-cwd", "", "Working directory on the remote host")
	spawnCmd.Flags().StringVar(&spawnPlatformID, "platform-id", "", "Credential platform id to authenticate with")
	spawnCmd.Flags().StringVar(&spawnResume, "resume", "", "Resume an existing CLI session id")
	spawnCmd.Flags().BoolVar(&spawnContinue, "continue", false, "Continue the most recent session in cwd")
	spawnCmd.Flags().DurationVar(&spawnWait, "wait", 0, "Block for this long after sending the prompt, printing events as they arrive")
}
