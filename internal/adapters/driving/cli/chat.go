package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/concierge/internal/adapters/driving/tui"
	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driving"
)

var chatPlain bool

// isTerminal reports whether stdin is an interactive terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Starts an interactive chat. On a terminal this opens the full screen
interface; otherwise questions are read one per line from stdin.

Controls:
  Enter    - Ask
  Ctrl+E   - Toggle routing details
  Ctrl+L   - Clear the transcript
  PgUp/Dn  - Scroll
  Esc      - Quit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line-based prompt even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}
	if _, err := svc.Index.Info(); err != nil {
		return fmt.Errorf("%w (run 'concierge index build' first)", err)
	}

	if chatPlain || !isTerminal() {
		return runPlainChat(cmd, svc.Answer)
	}

	app, err := tui.NewApp(&tui.Ports{Answer: svc.Answer, Stats: svc.Stats})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runPlainChat answers one question per input line until EOF or "exit".
func runPlainChat(cmd *cobra.Command, answers driving.AnswerService) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := chatTurn(cmd, out, answers, query); err != nil {
			return err
		}
	}
}

func chatTurn(cmd *cobra.Command, out io.Writer, answers driving.AnswerService, query string) error {
	ans, err := answers.Ask(cmd.Context(), query)

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		fmt.Fprintln(out, ve.Message)
	case err != nil && cmd.Context().Err() != nil:
		return cmd.Context().Err()
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
	default:
		printAnswer(out, ans, false)
	}
	fmt.Fprintln(out)
	return nil
}
