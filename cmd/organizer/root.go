package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var workspaceFlag string

	ctx := newCommandContext(&workspaceFlag)

	rootCmd := &cobra.Command{
		Use:           "organizer",
		Short:         "Sort curriculum files from the inbox into the archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory holding the inbox and archive roots (overrides WORKSPACE_DIR)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDashboardCommand(ctx))
	rootCmd.AddCommand(newTaxonomyCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
