package cli

import (
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/icofund/internal/setup"
)

const defaultConfigFile = "icofund.yaml"

func (s *session) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create a config file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			return setup.RunWizard(s.out, path, s.cfg)
		},
	}
}
