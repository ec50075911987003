package main

import (
	"os"

	"oberon"

	"github.com/spf13/cobra"
)

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("filetype", "f", "ll", "output file type (ll|bc)")
	cmd.Flags().StringP("output", "o", "", "output file (default: next to the source)")
	cmd.Flags().Bool("emit-types", false, "also write the checked types as <output>.types (msgpack)")
}

func init() {
	addBuildFlags(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build FILE",
	Short: "Check a module and compile it to LLVM IR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Run the semantic checker only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args[0])
		if err != nil {
			return err
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		diags := newDiagnostics(cmd, cfg)
		_, err = oberon.Compile(args[0], source, diags, oberon.StageCheck)
		return finish(diags, err)
	},
}

func runBuild(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	diags := newDiagnostics(cmd, cfg)
	result, err := oberon.Compile(path, source, diags, oberon.StageCodegen)
	if err != nil {
		return finish(diags, err)
	}
	output := cfg.Output
	if output == "" {
		output = oberon.OutputPath(path, cfg.FileType)
	}
	if err := oberon.Emit(result.IR, cfg.FileType, output); err != nil {
		diags.ReportError(err)
		return finish(diags, err)
	}
	diags.Debugf("wrote %s", output)
	if cfg.EmitTypes {
		if err := writeTypes(output+".types", result); err != nil {
			diags.ReportError(err)
			return finish(diags, err)
		}
		diags.Debugf("wrote %s.types", output)
	}
	return finish(diags, nil)
}

func writeTypes(path string, result *oberon.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = oberon.EncodeTypes(f, result.Module.Name.Text(), result.Info.Named)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
