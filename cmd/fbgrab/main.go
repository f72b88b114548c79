// fbgrab - terminal client for the fbgrab server.
// Runs an interactive TUI when attached to a terminal and a plain
// submit-and-download flow otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/iconidentify/fbgrab/cmd/fbgrab/internal/tui"
	"github.com/iconidentify/fbgrab/internal/client"
	"github.com/iconidentify/fbgrab/internal/config"
	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/saver"
	"github.com/iconidentify/fbgrab/internal/session"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	videoURL := flag.String("url", "", "Facebook video URL to process")
	formatID := flag.String("format", "", "Format id to download (default: first offered)")
	outDir := flag.String("out", "", "Output directory (overrides config)")
	headless := flag.Bool("headless", false, "Run without the TUI even on a terminal")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fbgrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Client.OutputDir = *outDir
	}

	interactive := !*headless && term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := newLogger(cfg.Client.LogFile, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	sessionID := uuid.NewString()
	logger = logger.With("session_id", sessionID)
	slog.SetDefault(logger)

	apiClient, err := client.NewClient(cfg.Client.ServerURL, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	machine := session.NewMachine(session.Config{
		PublicBaseURL: cfg.Backend.PublicURL,
		RampInterval:  cfg.Client.RampInterval,
		ResetDelay:    cfg.Client.ResetDelay,
	}, apiClient, apiClient, saver.NewFileSaver(cfg.Client.OutputDir, cfg.Client.MinFreeBytes, logger), logger)

	logger.Info("starting fbgrab",
		"version", Version,
		"server", cfg.Client.ServerURL,
		"interactive", interactive,
	)

	if interactive {
		app := tui.NewApp(machine, logger)
		if *videoURL != "" {
			app.Submit(*videoURL)
		}
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *videoURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required when not running interactively")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runHeadless(ctx, machine, *videoURL, *formatID, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text logs to path, or to stderr in headless mode. The TUI
// owns the screen, so without a log file interactive logs are discarded.
func newLogger(path string, interactive bool) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { f.Close() }
	case interactive:
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, closeFn, nil
}

// runHeadless submits url, optionally selects formatID and downloads the
// result, reporting to out.
func runHeadless(ctx context.Context, machine *session.Machine, url, formatID string, out io.Writer) error {
	fmt.Fprintln(out, "Processing...")

	s := machine.Submit(ctx, url)
	if s.Status != session.StatusSuccess {
		if domain.NeedsHelp(s.Message) {
			fmt.Fprintln(out, domain.HelpText)
		}
		return errors.New(s.Message)
	}

	fmt.Fprintf(out, "%s\n", s.Title)
	for _, f := range s.Formats {
		marker := " "
		if f.FormatID == s.SelectedFormatID {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %-12s %-10s %s\n", marker, f.FormatID, f.Resolution, f.FormatNote)
	}

	if formatID != "" {
		if err := machine.SelectFormat(formatID); err != nil {
			return fmt.Errorf("select format %q: %w", formatID, err)
		}
	}

	fmt.Fprintln(out, "Downloading...")
	if err := machine.StartDownload(ctx); err != nil {
		return fmt.Errorf("%s: %w", domain.MsgDownloadFailed, err)
	}

	fmt.Fprintf(out, "Saved to %s\n", machine.State().SavedPath)
	return nil
}
