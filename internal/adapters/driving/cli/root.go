// Package cli provides the cobra command tree for the knowledge engine.
//
// Commands hold their services in package-level variables wired once at
// startup via SetServices; tests swap them for mocks.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/core/ports/driving"
	"github.com/custodia-labs/kb-engine/internal/core/services"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services used by commands. Wired via SetServices.
var (
	knowledgeService  driving.KnowledgeService
	connectorRegistry *services.ConnectorRegistry
)

// Global flags.
var (
	flagTenant  string
	flagVerbose bool
)

// DefaultTenant is used when no --tenant flag is given.
const DefaultTenant = "default"

var rootCmd = &cobra.Command{
	Use:   "kbengine",
	Short: "Multi-tenant knowledge ingestion and semantic retrieval engine",
	Long: `kbengine ingests content from documents, websites, and SaaS platforms
into tenant-partitioned chunk stores and retrieves it by semantic similarity.

Register a source, let it sync, then search:

  kbengine source add website --name https://docs.example.com
  kbengine sync <source-id>
  kbengine search "how do I configure authentication"`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&flagTenant, "tenant", DefaultTenant, "Tenant scope for all operations")
	rootCmd.PersistentFlags().BoolVarP(
		&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// SetDefaultTenant overrides the tenant used when no --tenant flag is
// given, typically from configuration. An explicit flag still wins.
func SetDefaultTenant(tenant string) {
	if tenant == "" {
		return
	}
	f := rootCmd.PersistentFlags().Lookup("tenant")
	f.DefValue = tenant
	_ = f.Value.Set(tenant)
}

// SetServices wires the services used by the command tree.
func SetServices(ks driving.KnowledgeService, registry *services.ConnectorRegistry) {
	knowledgeService = ks
	connectorRegistry = registry
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
