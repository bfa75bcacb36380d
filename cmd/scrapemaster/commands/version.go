package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/scrapemaster/internal/version"
	"github.com/jmylchreest/scrapemaster/pkg/scrapemaster"
)

// versionInfo adds the library module version to the CLI build info.
type versionInfo struct {
	version.Info
	Library string `json:"library"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		if !asJSON {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			fmt.Fprintf(cmd.OutOrStdout(), "  Library:    %s\n", scrapemaster.Version())
			return nil
		}
		data, err := json.MarshalIndent(versionInfo{Info: version.Get(), Library: scrapemaster.Version()}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "print as JSON")
}
