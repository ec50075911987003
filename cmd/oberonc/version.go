package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"tinygo.org/x/go-llvm"
)

var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the compiler and LLVM versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		name := color.New(color.FgYellow, color.Bold).Sprint("oberonc")
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (LLVM %s)\n", name, version, llvm.Version)
	},
}
