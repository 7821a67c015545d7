package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage data sources",
}

var sourceAddCmd = &cobra.Command{
	Use:   "add [source-type]",
	Short: "Register a new data source",
	Long: `Registers a data source and queues its first sync.

Examples:
  # Crawl a documentation site
  kbengine source add website --name https://docs.example.com --max-depth 2

  # Watch a local upload directory
  kbengine source add document --name "Team docs" --upload-dir ./uploads

  # Ingest a GitHub repository (set credentials first or pass --token)
  kbengine source add github --name "API repo" --owner acme --repo api --token ghp_xxx`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove [source-id]",
	Short: "Remove a source and all its indexed content",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

var sourceUpdateCmd = &cobra.Command{
	Use:   "update [source-id]",
	Short: "Update a source's name or configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceUpdate,
}

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Inspect available connectors",
}

var connectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available connector types",
	RunE:  runConnectorList,
}

// Flags for source add/update.
var (
	sourceName     string
	sourceToken    string
	sourceMaxDepth int
	sourceMaxPages int
	sourceScope    string
	sourceExclude  []string
	sourceKeywords []string
	sourceUpload   string
	sourceFolderID string
	sourcePath     string
	sourceRootPage string
	sourceOwner    string
	sourceRepo     string
	sourceSpotID   string
	sourceBaseURL  string
)

func init() {
	for _, cmd := range []*cobra.Command{sourceAddCmd, sourceUpdateCmd} {
		cmd.Flags().StringVar(&sourceName, "name", "", "Source name (root URL for websites)")
		cmd.Flags().IntVar(&sourceMaxDepth, "max-depth", 0, "Maximum crawl depth (website)")
		cmd.Flags().IntVar(&sourceMaxPages, "max-pages", 0, "Maximum pages fetched (website)")
		cmd.Flags().StringVar(&sourceScope, "scope-path", "", "Restrict crawling/files to this path prefix")
		cmd.Flags().StringSliceVar(&sourceExclude, "exclude", nil, "Path prefixes to skip (website)")
		cmd.Flags().StringSliceVar(&sourceKeywords, "keyword", nil, "Keep only pages matching a keyword (website)")
		cmd.Flags().StringVar(&sourceUpload, "upload-dir", "", "Upload directory (document)")
		cmd.Flags().StringVar(&sourceFolderID, "folder-id", "", "Folder ID (drive)")
		cmd.Flags().StringVar(&sourcePath, "path", "", "Folder path (dropbox)")
		cmd.Flags().StringVar(&sourceRootPage, "root-page", "", "Root page ID (notion)")
		cmd.Flags().StringVar(&sourceOwner, "owner", "", "Repository owner (github)")
		cmd.Flags().StringVar(&sourceRepo, "repo", "", "Repository name (github)")
		cmd.Flags().StringVar(&sourceSpotID, "spot-id", "", "Spot ID (highspot)")
		cmd.Flags().StringVar(&sourceBaseURL, "base-url", "", "Override the platform API endpoint")
	}
	sourceAddCmd.Flags().StringVar(&sourceToken, "token", "", "Access token for platform sources")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceUpdateCmd)
	connectorCmd.AddCommand(connectorListCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(connectorCmd)
}

// configFromFlags collects connector settings from the shared flag set.
func configFromFlags() domain.ConnectorConfig {
	return domain.ConnectorConfig{
		MaxDepth:       sourceMaxDepth,
		MaxPages:       sourceMaxPages,
		ScopePath:      sourceScope,
		ExcludePaths:   sourceExclude,
		FilterKeywords: sourceKeywords,
		UploadDir:      sourceUpload,
		FolderID:       sourceFolderID,
		Path:           sourcePath,
		RootPageID:     sourceRootPage,
		Owner:          sourceOwner,
		Repo:           sourceRepo,
		SpotID:         sourceSpotID,
		BaseURL:        sourceBaseURL,
	}
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	ctx := context.Background()
	sourceType := domain.SourceType(args[0])

	name := sourceName
	if name == "" {
		return errors.New("--name is required")
	}

	source, err := knowledgeService.RegisterSource(ctx, flagTenant, sourceType, name, configFromFlags())
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	if sourceToken != "" {
		creds := domain.Credentials{AccessToken: sourceToken}
		if err := knowledgeService.SetCredentials(ctx, flagTenant, source.ID, creds); err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		// Registration queued a sync before credentials existed; retrigger
		// now that the connector can authenticate.
		if err := knowledgeService.StartSync(ctx, flagTenant, source.ID); err != nil {
			return fmt.Errorf("failed to start sync: %w", err)
		}
	}

	cmd.Printf("Added source: %s\n", source.ID)
	cmd.Printf("  Type: %s\n", source.Type)
	cmd.Printf("  Name: %s\n", source.Name)
	cmd.Printf("  Status: %s\n", source.Status)
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	ctx := context.Background()
	sources, err := knowledgeService.ListSources(ctx, flagTenant)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		cmd.Println("No configured sources.")
		cmd.Println("Add one with: kbengine source add <type> --name <name>")
		return nil
	}

	cmd.Println("Configured sources:")
	cmd.Println()
	for i := range sources {
		s := &sources[i]
		cmd.Printf("  %s\n", s.ID)
		cmd.Printf("    Type: %s\n", s.Type)
		cmd.Printf("    Name: %s\n", s.Name)
		cmd.Printf("    Status: %s\n", s.Status)
		if s.LastSynced != "" {
			cmd.Printf("    Last synced: %s\n", s.LastSynced)
		}
		if s.ItemCount > 0 {
			cmd.Printf("    Items: %d\n", s.ItemCount)
		}
		cmd.Println()
	}
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	sourceID := args[0]
	ctx := context.Background()

	removed, err := knowledgeService.DeleteSource(ctx, flagTenant, sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	if !removed {
		cmd.Printf("Source not found: %s\n", sourceID)
		return nil
	}

	cmd.Printf("Removed source: %s\n", sourceID)
	return nil
}

func runSourceUpdate(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	sourceID := args[0]
	ctx := context.Background()

	// Start from the stored config so settings not mentioned on the
	// command line survive the update.
	source, err := knowledgeService.GetSource(ctx, flagTenant, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	if err := knowledgeService.UpdateSource(ctx, flagTenant, sourceID, sourceName, mergeConfigFlags(cmd, source.Config)); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	cmd.Printf("Updated source: %s\n", sourceID)
	return nil
}

// mergeConfigFlags overlays explicitly-set flags onto an existing
// connector config.
func mergeConfigFlags(cmd *cobra.Command, config domain.ConnectorConfig) domain.ConnectorConfig {
	flags := cmd.Flags()
	if flags.Changed("max-depth") {
		config.MaxDepth = sourceMaxDepth
	}
	if flags.Changed("max-pages") {
		config.MaxPages = sourceMaxPages
	}
	if flags.Changed("scope-path") {
		config.ScopePath = sourceScope
	}
	if flags.Changed("exclude") {
		config.ExcludePaths = sourceExclude
	}
	if flags.Changed("keyword") {
		config.FilterKeywords = sourceKeywords
	}
	if flags.Changed("upload-dir") {
		config.UploadDir = sourceUpload
	}
	if flags.Changed("folder-id") {
		config.FolderID = sourceFolderID
	}
	if flags.Changed("path") {
		config.Path = sourcePath
	}
	if flags.Changed("root-page") {
		config.RootPageID = sourceRootPage
	}
	if flags.Changed("owner") {
		config.Owner = sourceOwner
	}
	if flags.Changed("repo") {
		config.Repo = sourceRepo
	}
	if flags.Changed("spot-id") {
		config.SpotID = sourceSpotID
	}
	if flags.Changed("base-url") {
		config.BaseURL = sourceBaseURL
	}
	return config
}

func runConnectorList(cmd *cobra.Command, _ []string) error {
	if connectorRegistry == nil {
		return errors.New("connector registry not configured")
	}

	types := connectorRegistry.Types()
	if len(types) == 0 {
		cmd.Println("No connectors available.")
		return nil
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	cmd.Println("Available connectors:")
	for _, t := range types {
		cmd.Printf("  %s\n", t)
	}
	return nil
}
