package cli

import (
	"github.com/spf13/cobra"

	"github.com/eldtechnologies/fileshare/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		return migrate(cmd.Context(), cfg, newLogger(cfg))
	},
}
