package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

var (
	askJSON    bool
	askExplain bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question",
	Long: `Answers one question from the built index.

The question is validated, classified and routed to the rule engine, the
curated Q&A list or the document corpus. Questions nothing can answer
with confidence are declined and logged for review.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full answer as JSON")
	askCmd.Flags().BoolVar(&askExplain, "explain", false, "show routing and every strategy attempt")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}
	if _, err := svc.Index.Info(); err != nil {
		return fmt.Errorf("%w (run 'concierge index build' first)", err)
	}

	query := strings.Join(args, " ")
	ans, err := svc.Answer.Ask(cmd.Context(), query)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		if askJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"query":   query,
				"error":   ve.Reason,
				"message": ve.Message,
			})
		}
		cmd.Println(ve.Message)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return writeJSON(cmd.OutOrStdout(), ans)
	}
	printAnswer(cmd.OutOrStdout(), ans, askExplain)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printAnswer writes the answer text followed by a short provenance block.
func printAnswer(w io.Writer, ans *domain.Answer, explain bool) {
	fmt.Fprintln(w, ans.Text)
	fmt.Fprintln(w)

	if ans.Refused {
		fmt.Fprintln(w, "  (declined: no strategy was confident enough)")
	} else {
		fmt.Fprintf(w, "  Strategy:   %s\n", ans.Strategy.Description())
		fmt.Fprintf(w, "  Confidence: %.2f\n", ans.Confidence)
		for _, a := range ans.Attributions {
			fmt.Fprintf(w, "  Source:     %s (chunk %d, %.2f)\n", a.Source, a.ChunkID, a.Confidence)
		}
	}

	if !explain {
		return
	}
	fmt.Fprintln(w)
	if c := ans.Classification; c != nil {
		fmt.Fprintf(w, "  Label:      %s (%.2f)\n", c.Label, c.Confidence)
	}
	fmt.Fprintf(w, "  Routing:    %s\n", ans.Decision.Reason)
	for i, at := range ans.Attempts {
		verdict := "rejected"
		if at.Accepted {
			verdict = "accepted"
		}
		fmt.Fprintf(w, "  [%d] %-13s %.2f %s", i+1, at.Strategy, at.Confidence, verdict)
		if at.Reason != "" {
			fmt.Fprintf(w, " (%s)", at.Reason)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  Query ID:   %s (%d ms)\n", ans.QueryID, ans.LatencyMS)
}
