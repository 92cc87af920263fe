package cli

import (
	"github.com/spf13/cobra"

	"alert-digest/internal/app"
)

var directoryFilter string

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Display the subscription table used to name resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Directory(cmd.Context(), app.DirectoryOptions{Filter: directoryFilter})
	},
}

func init() {
	directoryCmd.Flags().StringVar(&directoryFilter, "filter", "", "Only show rows whose id, name or client contains this text")
}
