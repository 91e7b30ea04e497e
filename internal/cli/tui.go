package cli

import (
	"fmt"

	"cc_session_mgr/internal/tui"
)

// runTUI opens the interactive browser with live change tracking
func (a *app) runTUI() error {
	a.index.StartWatcher()

	err := tui.Run(tui.ModelOptions{
		Store:         a.index,
		SessionsLimit: a.cfg.Limits.Sessions,
		SearchLimit:   a.cfg.Limits.Search,
		Theme:         a.cfg.Theme,
	})
	if err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
