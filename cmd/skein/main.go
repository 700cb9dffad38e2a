package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/skeinedit/skein/internal/config"
	"github.com/skeinedit/skein/internal/fileio"
	"github.com/skeinedit/skein/internal/plugin"
	"github.com/skeinedit/skein/internal/store"
	"github.com/skeinedit/skein/internal/tui"
)

func main() {
	dataDir, err := config.EnsureDataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "skein: %v\n", err)
		os.Exit(1)
	}

	// Log to a file; stderr belongs to the terminal UI.
	logFile, err := os.OpenFile(filepath.Join(dataDir, "skein.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err == nil {
		defer logFile.Close() //nolint:errcheck
		log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.Nop()
	}

	cfg, err := config.Load(filepath.Join(dataDir, "config.toml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "skein: %v\n", err)
		os.Exit(1)
	}

	sessions, err := store.Open(filepath.Join(dataDir, "session.db"))
	if err != nil {
		log.Warn().Err(err).Msg("session store unavailable")
		sessions = nil
	}
	defer sessions.Close() //nolint:errcheck

	plugins := plugin.NewHost()
	if err := plugins.Register(plugin.Uppercase{}); err != nil {
		log.Warn().Err(err).Msg("builtin plugin registration failed")
	}

	m := tui.New(cfg, &fileio.Saver{}, plugins, sessions, os.Args[1:])
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "skein: %v\n", err)
		os.Exit(1)
	}
}
