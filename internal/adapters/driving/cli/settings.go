package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/core/domain"
	coreservices "github.com/custodia-labs/concierge/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change thresholds, the embedding provider and corpus paths.

Settings are stored in config.toml under the concierge home. CONCIERGE_*
environment variables override them for a single run.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting. Run 'concierge settings keys' for the list of keys.

Examples:
  concierge settings set thresholds.high_confidence 0.8
  concierge settings set paths.docs_dir ./docs
  concierge settings set routing.similarity_labels academic,campus_life`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range coreservices.SettingKeys() {
			cmd.Println(k)
		}
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider. Changing the provider or model
invalidates the index; rebuild it afterwards.`,
	RunE: runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsOnly(cmd *cobra.Command) (*Services, error) {
	svc, err := requireServices(cmd, LoadOptions{SettingsOnly: true})
	if err != nil {
		return nil, err
	}
	if svc.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return svc, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsOnly(cmd)
	if err != nil {
		return err
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	th := settings.Thresholds
	cmd.Println("[Routing]")
	cmd.Printf("  High confidence:      %.2f\n", th.HighConfidence)
	cmd.Printf("  Mid confidence:       %.2f\n", th.MidConfidence)
	cmd.Printf("  Rule labels:          %s\n", strings.Join(th.DeterministicLabels, ", "))
	cmd.Printf("  Short-answer labels:  %s\n", strings.Join(th.SimilarityLabels, ", "))
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Accept threshold:     %.2f\n", th.AcceptThreshold)
	cmd.Printf("  Min similarity:       %.2f\n", th.MinSimilarity)
	cmd.Printf("  Min confidence floor: %.2f\n", th.MinConfidenceFloor)
	cmd.Printf("  Max distance ceiling: %.2f\n", th.MaxDistanceCeiling)
	cmd.Printf("  Top K:                %d Q&A, %d chunks\n", th.TopKShortAnswer, th.TopKDocuments)
	cmd.Printf("  Chunking:             %d chars, %d overlap\n", th.ChunkSize, th.ChunkOverlap)
	cmd.Printf("  Timeouts:             embed %s, classify %s\n", th.EmbedTimeout, th.ClassifyTimeout)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Model != "" {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	cmd.Println()

	cmd.Println("[Guards]")
	cmd.Printf("  Validation: %s\n", onOff(settings.Guards.Validation))
	cmd.Printf("  Scope:      %s\n", onOff(settings.Guards.Scope))
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Documents: %s\n", orUnset(settings.Paths.DocsDir))
	cmd.Printf("  Q&A file:  %s\n", orUnset(settings.Paths.QAFile))
	cmd.Printf("  Rules:     %s\n", orUnset(settings.Paths.RulesFile))
	cmd.Printf("  Labels:    %s\n", orUnset(settings.Paths.LabelsFile))
	cmd.Printf("  Audit log: %s\n", orUnset(settings.Paths.AuditLog))
	cmd.Println()

	if err := svc.Settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsOnly(cmd)
	if err != nil {
		return err
	}
	if err := svc.Settings.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := settingsOnly(cmd)
	if err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()), svc)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, svc *Services) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	model := defaultModel
	var baseURL string
	if !selected.IsLocal() {
		cmd.Printf("Enter model name [%s]: ", defaultModel)
		if m := readLine(reader); m != "" {
			model = m
		}
		cmd.Print("Enter base URL [http://localhost:11434]: ")
		baseURL = readLine(reader)
	}

	if err := svc.Settings.SetEmbeddingProvider(selected, model, baseURL); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	cmd.Println("Run 'concierge index build' to re-embed the corpus.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

