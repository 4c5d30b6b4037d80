package check

import (
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/pkg/config"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to check race data",
	}

	cmd.AddCommand(NewCheckLapsCmd())
	cmd.AddCommand(NewCheckArtifactCmd())
	cmd.AddCommand(NewCheckWorkbookCmd())

	return cmd
}

var appConfig config.Config // holds processed config values
