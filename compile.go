package oberon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tinygo.org/x/go-llvm"
)

var (
	ErrParse    = errors.New("parsing failed")
	ErrSemantic = errors.New("semantic checking failed")
)

type Stage int

const (
	StageParse Stage = iota
	StageCheck
	StageCodegen
)

type Result struct {
	Module *Module
	Info   *Info
	// IR is set when the pipeline ran through StageCodegen.
	IR llvm.Module
}

// Compile runs the phases up to and including last, logging progress to
// diags. The checker runs to completion before generation starts, and
// generation only starts when the checker reported no errors.
func Compile(filename string, source []byte, diags *Diagnostics, last Stage) (*Result, error) {
	diags.AddSource(filename, source)
	if ext := filepath.Ext(filename); ext != OBERON_EXTENSION {
		diags.Debugf("%s does not have the %s extension", filename, OBERON_EXTENSION)
	}
	m, err := ParseFile(filename, source)
	if err != nil {
		diags.ReportError(err)
		diags.Infof("Errors occurred during parsing.")
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	diags.Infof("Parsing successful.")
	result := &Result{Module: m}
	if last == StageParse {
		return result, nil
	}

	before := diags.ErrorCount()
	info, _ := Check(m, diags)
	result.Info = info
	if n := diags.ErrorCount() - before; n > 0 {
		diags.Infof("Errors occurred during semantic checking.")
		return result, fmt.Errorf("%w: %d error(s)", ErrSemantic, n)
	}
	if last == StageCheck {
		diags.Infof("Semantic checking successful.")
		return result, nil
	}
	diags.Infof("Semantic checking successful. Starting code generation...")

	ir, err := Codegen(m, info)
	if err != nil {
		diags.ReportError(err)
		return result, err
	}
	result.IR = ir
	diags.Infof("Code generation successful.")
	return result, nil
}

// Emit writes the generated module as textual IR ("ll") or bitcode ("bc").
func Emit(ir llvm.Module, fileType, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch fileType {
	case "ll":
		_, err = io.WriteString(f, ir.String())
	case "bc":
		err = llvm.WriteBitcodeToFile(ir, f)
	default:
		err = fmt.Errorf("unknown file type %q", fileType)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// OutputPath is where the module compiled from source is written when no
// output is configured.
func OutputPath(source, fileType string) string {
	return outputPath(source, "."+fileType)
}

// Summary is the closing line of a compilation.
func Summary(diags *Diagnostics) string {
	status := "complete"
	if diags.ErrorCount() != 0 {
		status = "failed"
	}
	return fmt.Sprintf("Compilation %s: %d error(s), %d warning(s), %d message(s).",
		status, diags.ErrorCount(), diags.WarningCount(), diags.InfoCount())
}
