package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/fileshare/internal/config"
	"github.com/eldtechnologies/fileshare/internal/handlers"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ds, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer ds.Close()

		stats, err := ds.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		if statsJSON {
			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), handlers.FormatDashboard(stats))
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print counts as JSON")
}
