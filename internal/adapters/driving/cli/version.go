package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		v := app.Version
		if v == "" {
			v = "dev"
		}
		cmd.Printf("docket version %s\n", v)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
