package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"oberon"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Fold constant expressions read from standard input",
	Long: `Each input line is either "NAME = expression", which defines a constant,
or an expression, whose folded value is printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		diags := newDiagnostics(cmd, cfg)
		eval := oberon.NewEvaluator(diags)
		prompt := isTerminal(os.Stdin)
		out := cmd.OutOrStdout()
		reader := bufio.NewScanner(cmd.InOrStdin())
		for line := 1; ; line++ {
			if prompt {
				fmt.Fprint(out, "> ")
			}
			if !reader.Scan() {
				break
			}
			text := strings.TrimSpace(reader.Text())
			if text == "" {
				continue
			}
			value, err := evalLine(eval, fmt.Sprintf("<stdin>:%d", line), text)
			if err != nil {
				if !errors.Is(err, oberon.ErrSemantic) {
					diags.ReportError(err)
				}
				continue
			}
			fmt.Fprintln(out, value)
		}
		if err := reader.Err(); err != nil {
			return err
		}
		if diags.ErrorCount() != 0 {
			return errFailed
		}
		return nil
	},
}

func evalLine(eval *oberon.Evaluator, filename, text string) (int64, error) {
	tokens, err := oberon.ScanTokens(filename, []byte(text))
	if err != nil {
		return 0, err
	}
	if len(tokens) > 2 && tokens[0].Kind == oberon.IDENTIFIER && tokens[1].Kind == oberon.EQ {
		parser := oberon.NewParser(tokens[2:])
		expr, err := parser.ParseExprAndEof()
		if err != nil {
			return 0, err
		}
		return eval.Define(tokens[0], expr)
	}
	parser := oberon.NewParser(tokens)
	expr, err := parser.ParseExprAndEof()
	if err != nil {
		return 0, err
	}
	return eval.Evaluate(expr)
}
