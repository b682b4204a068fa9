package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/buildinfo"
)

// Command creates the version command.
func Command(info *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fakevoice %s\n", info.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:     %s\n", info.BuildDate())
			fmt.Fprintf(cmd.OutOrStdout(), "  go:        %s %s/%s\n", info.GoVersion(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(cmd.OutOrStdout(), "  system id: %s\n", info.SystemID())
		},
	}
}
