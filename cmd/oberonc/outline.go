package main

import (
	"oberon"

	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Print the names a module declares",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := oberon.NameNodeFromPath(args[0])
		if err != nil {
			return err
		}
		return oberon.WriteOutline(cmd.OutOrStdout(), node)
	},
}
