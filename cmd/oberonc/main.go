package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"oberon"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errFailed reports a compilation whose diagnostics were already printed.
var errFailed = errors.New("compilation failed")

var rootCmd = &cobra.Command{
	Use:           "oberonc [file]",
	Short:         "Oberon-0 compiler",
	Long:          `oberonc checks Oberon-0 modules and compiles them to LLVM IR`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runBuild(cmd, args[0])
	},
}

func main() {
	rootCmd.Version = version
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "configuration file (oberon.toml or oberon.properties)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.BoolP("quiet", "q", false, "suppress all diagnostics")
	flags.BoolP("debug", "d", false, "print debug messages")
	flags.Bool("werror", false, "treat warnings as errors")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics to print (0 = no limit)")
	addBuildFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "oberonc:", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// loadConfig merges, in increasing priority, the defaults, the nearest
// project file and the flags set on the command line.
func loadConfig(cmd *cobra.Command, source string) (oberon.Config, error) {
	flags := cmd.Flags()
	cfg := oberon.DefaultConfig()
	path, err := flags.GetString("config")
	if err != nil {
		return cfg, err
	}
	if path == "" && source != "" {
		found, ok, err := oberon.FindConfig(filepath.Dir(source))
		if err != nil {
			return cfg, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if cfg, err = oberon.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("color") {
		cfg.Color, _ = flags.GetString("color")
	}
	if flags.Changed("quiet") {
		cfg.Quiet, _ = flags.GetBool("quiet")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("werror") {
		cfg.WarningsAsErrors, _ = flags.GetBool("werror")
	}
	if flags.Changed("max-diagnostics") {
		cfg.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	if flags.Lookup("filetype") != nil && flags.Changed("filetype") {
		cfg.FileType, _ = flags.GetString("filetype")
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Lookup("emit-types") != nil && flags.Changed("emit-types") {
		cfg.EmitTypes, _ = flags.GetBool("emit-types")
	}
	return cfg, cfg.Validate()
}

func newDiagnostics(cmd *cobra.Command, cfg oberon.Config) *oberon.Diagnostics {
	switch cfg.Color {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stderr)
	}
	diags := oberon.NewDiagnostics(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if cfg.Debug {
		diags.SetLevel(oberon.SevDebug)
	}
	diags.SetQuiet(cfg.Quiet)
	diags.SetWarningsAsErrors(cfg.WarningsAsErrors)
	diags.SetMax(cfg.MaxDiagnostics)
	return diags
}

// finish logs the summary line and maps a failed compilation to errFailed.
func finish(diags *oberon.Diagnostics, err error) error {
	diags.Infof("%s", oberon.Summary(diags))
	if diags.ErrorCount() != 0 {
		return errFailed
	}
	return err
}
