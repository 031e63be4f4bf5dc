package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface.

Ask questions across your files or about one file picked from the file
list, browse files by category, and reindex or delete them.

Controls:
  Enter     - Ask / Select
  Tab       - Cycle kind filter
  Ctrl+G    - Toggle answer generation
  ↑/k, ↓/j  - Navigate
  Esc       - Back
  Ctrl+C    - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panicked: %v", r)
		}
	}()

	app, err := newTUIApp()
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// newTUIApp builds the app from the configured services.
func newTUIApp() (*tui.App, error) {
	ports := &tui.Ports{
		Query:  queryService,
		Files:  fileService,
		Ingest: ingestService,
		Owner:  ownerID,
		TopK:   defaultTopK,
	}
	app, err := tui.NewApp(ports)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app, nil
}
