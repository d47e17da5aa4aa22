// pomo is a terminal pomodoro timer.
//
// Usage:
//
//	pomo [--minutes 25] [--voice] [--no-sound] [--verbose|--quiet]
//	pomo plain
//	pomo config
package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/pomo/internal/config"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// flags holds the raw command-line values shared by every subcommand.
type flags struct {
	verbose      bool
	quiet        bool
	logFile      string
	noSound      bool
	minutes      int
	pollInterval time.Duration
	voice        bool
	whisperBin   string
	whisperModel string
	configPath   string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:          "pomo",
		Short:        "Terminal pomodoro timer",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, runTUI)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&f.verbose, "verbose", false, "enable verbose/debug logging")
	pf.BoolVar(&f.quiet, "quiet", false, "disable all logging")
	pf.StringVar(&f.logFile, "log-file", ".pomo-logs/pomo.log", "file to write logs to (use \"stderr\" to log to console)")
	pf.BoolVar(&f.noSound, "no-sound", false, "skip the completion tone")
	pf.IntVar(&f.minutes, "minutes", config.DefaultMinutes, "session length in minutes")
	pf.DurationVar(&f.pollInterval, "poll-interval", config.DefaultPollInterval, "refresh period while the timer runs")
	pf.BoolVar(&f.voice, "voice", false, "enable voice commands via local Whisper STT")
	pf.StringVar(&f.whisperBin, "whisper-bin", "whisper-cli", "path to the whisper-cpp CLI binary")
	pf.StringVar(&f.whisperModel, "whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	pf.StringVar(&f.configPath, "config", "", "config file (default $POMO_CONFIG or $XDG_CONFIG_HOME/pomo/config.toml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "plain",
		Short: "Line-based mode without the full-screen UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, runPlain)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigCmd(f.configFile())
		},
	})

	return rootCmd
}

func (f *flags) configFile() string {
	if f.configPath != "" {
		return f.configPath
	}
	return config.DefaultConfigPath()
}

// resolveConfig layers defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	file, err := config.LoadConfig(f.configFile())
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := config.Default()
	if err := cfg.Merge(file); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cmd.Flags().Changed("minutes") {
		cfg.Minutes = f.minutes
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = f.pollInterval
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openLog directs logs to a file by default so the UI stays clean. The
// returned cleanup func is never nil.
func openLog(f *flags) (*logger.Logger, func()) {
	var logOut io.Writer = os.Stderr
	cleanup := func() {}

	if f.logFile != "" && f.logFile != "stderr" {
		if dir := filepath.Dir(f.logFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", f.logFile, err)
		} else {
			logOut = file
			cleanup = func() { file.Close() }
		}
	}

	// Third-party libs (the whisper transcriber) log through the
	// standard package; keep them off the terminal too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	return logger.New(logger.ParseLevel(f.verbose, f.quiet), logOut), cleanup
}

func runConfigCmd(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}
