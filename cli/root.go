// Package cli implements the scribe command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets the version reported by the version command. Called
// from main with the build-time value.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "scribe — documentation generation for code repositories",
	Long: `scribe generates reference documentation for a code repository by
streaming a generation session from a scribe server. Run "scribe generate"
as a client, or "scribe serve" to host the generation service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
}
