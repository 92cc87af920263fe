package cli

import (
	"github.com/spf13/cobra"

	"alert-digest/internal/app"
)

var (
	processOutput string
	processFormat string
	processNotify bool
)

var processCmd = &cobra.Command{
	Use:   "process <path>...",
	Short: "Build the incident report from alert emails",
	Long: "Reads .eml files and YAML fixtures (files or directories), " +
		"groups the alerts per day and prints the report with the discarded mail.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ProcessOptions{
			Paths:  args,
			Output: processOutput,
			Format: processFormat,
			Notify: processNotify,
		}
		return getApp().Process(cmd.Context(), opts)
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "Write the report to this file instead of stdout")
	processCmd.Flags().StringVar(&processFormat, "format", "", "Report format: text or json (defaults to config)")
	processCmd.Flags().BoolVar(&processNotify, "notify", false, "Deliver each day's digest through the configured channel")
}
