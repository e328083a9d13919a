// Command sessionactor drives session actor runs from the command line,
// without a UI process attached: spawn an agent CLI subprocess, send it
// turns, fork or stop a run, and replay or tail its persisted event log.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/bazelment/sessioncore/internal/sessioncmd"
	"github.com/bazelment/sessioncore/internal/sshwrap"
)

var (
	dataDir    string
	hostsPath  string
	configPath string
	claudeBin  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionactor",
	Short: "Supervise agent CLI subprocess sessions",
	Long: `sessionactor spawns and supervises an agent CLI subprocess per
session, translating its line-delimited JSON protocol into a typed event
log and routing turns, control requests, and permission responses to it.`,
}

func init() {
	home, _ := os.UserHomeDir()
	defaultDataDir := filepath.Join(home, ".local", "share", "sessioncore")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir, "Directory for run metadata and event logs")
	rootCmd.PersistentFlags().StringVar(&hostsPath, "hosts", sshwrap.DefaultConfigPath(), "Path to the remote hosts config file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the account config file")
	rootCmd.PersistentFlags().StringVar(&claudeBin, "claude-bin", "", "Override the agent CLI binary (default: claude, looked up on PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// stdoutSink publishes every bus envelope as a JSON line on stdout — the
// same shape a UI process would receive over a websocket, minus the
// websocket.
type stdoutSink struct{}

func (stdoutSink) Publish(env bus.Envelope) {
	line, err := json.Marshal(env)
	if err != nil {
		return
	}
	fmt.Println(string(line))
}

// newManager bootstraps a sessioncmd.Manager from the persistent flags:
// run metadata and event logs under dataDir, remote hosts from hostsPath,
// account credentials and defaults from configPath.
func newManager() (*sessioncmd.Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	runs, err := sessioncmd.NewRunStore(filepath.Join(dataDir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	events := eventlog.NewWriter(filepath.Join(dataDir, "events"))

	hosts, err := sshwrap.LoadHostConfig(hostsPath)
	if err != nil {
		return nil, fmt.Errorf("load hosts config: %w", err)
	}

	cfg, err := loadFileConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load account config: %w", err)
	}

	m := sessioncmd.NewManager(runs, events, hosts, stdoutSink{})
	m.UserDefaults = cfg.userDefaults()
	m.GlobalAuth = cfg.globalAuth()
	m.Credentials = cfg.credentials()
	if cfg.ClaudeBin != "" {
		m.LocalClaudeBin = cfg.ClaudeBin
	}
	if claudeBin != "" {
		m.LocalClaudeBin = claudeBin
	}
	return m, nil
}

// recoverOrphans marks every run left RunStatusRunning or RunStatusPending
// by a previous process that exited without a clean shutdown as Failed:
// with no actor registry surviving a process restart, there is no live
// supervisor left to produce a terminal state for them on its own.
func recoverOrphans(m *sessioncmd.Manager, log *slog.Logger) {
	pending, err := m.Runs.ListPending()
	if err != nil {
		log.Warn("list pending runs for orphan recovery", "err", err)
		return
	}
	for _, runID := range pending {
		meta, err := m.Runs.Load(runID)
		if err != nil {
			log.Warn("load orphaned run meta", "run_id", runID, "err", err)
			continue
		}
		meta.Status = sessioncmd.RunStatusFailed
		meta.ErrorMsg = "process restarted while run was active"
		if err := m.Runs.Save(meta); err != nil {
			log.Warn("mark orphaned run failed", "run_id", runID, "err", err)
			continue
		}
		log.Info("recovered orphaned run", "run_id", runID)
	}
}
