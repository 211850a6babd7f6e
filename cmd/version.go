package cmd

import (
	"codevectorizer/internal/version"

	"github.com/spf13/cobra"
)

// Version information set via ldflags during build. Kept for build systems
// that inject through the cmd package instead of internal/version.
//
//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	Version   string
	Commit    string
	BuildTime string
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if Version != "" || Commit != "" || BuildTime != "" {
				version.SetBuildVars(Version, Commit, BuildTime)
			}
			return version.Get().Write(cmd.OutOrStdout(), short)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	return cmd
}

//nolint:gochecknoinits // Standard Cobra CLI pattern.
func init() {
	rootCmd.AddCommand(newVersionCmd())
}
