package cli

import (
	"github.com/spf13/cobra"
)

var (
	statsLimit int
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show query statistics",
}

var statsTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Most frequently asked questions",
	Long: `Lists the most frequently asked questions. Until anything has been
asked, a default list of popular questions is shown.`,
	Args: cobra.NoArgs,
	RunE: runStatsTop,
}

var statsUnresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "Questions that were declined",
	Long: `Lists questions no strategy could answer with confidence, most recent
first. Use it to find gaps in the rules, the Q&A list and the documents.`,
	Args: cobra.NoArgs,
	RunE: runStatsUnresolved,
}

func init() {
	for _, c := range []*cobra.Command{statsTopCmd, statsUnresolvedCmd} {
		c.Flags().IntVarP(&statsLimit, "limit", "n", 10, "maximum number of rows")
		c.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
		statsCmd.AddCommand(c)
	}
	rootCmd.AddCommand(statsCmd)
}

func runStatsTop(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}

	top, err := svc.Stats.TopQueries(cmd.Context(), statsLimit)
	if err != nil {
		return err
	}
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), top)
	}

	for i, q := range top {
		if q.Count > 0 {
			cmd.Printf("  %2d. %s (%d)\n", i+1, q.Query, q.Count)
		} else {
			cmd.Printf("  %2d. %s\n", i+1, q.Query)
		}
	}
	return nil
}

func runStatsUnresolved(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}

	rows, err := svc.Stats.Unresolved(cmd.Context(), statsLimit)
	if err != nil {
		return err
	}
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	if len(rows) == 0 {
		cmd.Println("No unresolved questions.")
		return nil
	}

	for _, q := range rows {
		cmd.Printf("  %s  x%d  %s\n", q.LastSeen.Local().Format("2006-01-02 15:04"), q.Count, q.Query)
		cmd.Printf("      %s\n", q.Reason)
		label := q.Label
		if label == "" {
			label = "-"
		}
		cmd.Printf("      label=%s short_answer=%.2f retrieval=%.2f\n",
			label, q.ShortAnswerSimilarity, q.RetrievalConfidence)
	}
	return nil
}
