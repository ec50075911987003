package oberon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

type Severity int

const (
	SevDebug Severity = iota
	SevInfo
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevDebug:
		return "debug"
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	panic("unreachable")
}

var severityColors = map[Severity]*color.Color{
	SevDebug:   color.New(color.FgCyan),
	SevInfo:    color.New(color.FgGreen),
	SevWarning: color.New(color.FgYellow, color.Bold),
	SevError:   color.New(color.FgRed, color.Bold),
}

type Diagnostic struct {
	Severity Severity
	Pos      Pos
	HasPos   bool
	Message  string
}

func (d Diagnostic) String() string {
	if !d.HasPos {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Reporter receives diagnostics from the semantic checker.
type Reporter interface {
	Report(d Diagnostic)
}

// Diagnostics is a Reporter that counts every report and prints those at
// or above its level.
type Diagnostics struct {
	out     io.Writer
	errOut  io.Writer
	level   Severity
	werror  bool
	quiet   bool
	max     int
	printed int
	counts  [SevError + 1]int
	items   []Diagnostic
	sources map[string][][]byte
}

func NewDiagnostics(out, errOut io.Writer) *Diagnostics {
	return &Diagnostics{
		out:     out,
		errOut:  errOut,
		level:   SevInfo,
		sources: make(map[string][][]byte),
	}
}

func (d *Diagnostics) SetLevel(level Severity) {
	d.level = level
}

func (d *Diagnostics) SetWarningsAsErrors(enabled bool) {
	d.werror = enabled
}

func (d *Diagnostics) SetQuiet(quiet bool) {
	d.quiet = quiet
}

// SetMax caps the number of printed diagnostics. Zero means no cap.
func (d *Diagnostics) SetMax(n int) {
	d.max = n
}

// AddSource registers the text of a file so that reports positioned in it
// are followed by the offending line.
func (d *Diagnostics) AddSource(filename string, source []byte) {
	d.sources[filename] = bytes.Split(source, []byte("\n"))
}

func (d *Diagnostics) Report(diag Diagnostic) {
	if diag.Severity == SevWarning && d.werror {
		diag.Severity = SevError
	}
	d.counts[diag.Severity]++
	d.items = append(d.items, diag)
	if d.quiet || diag.Severity < d.level {
		return
	}
	if d.max > 0 && d.printed >= d.max {
		return
	}
	d.printed++
	w := d.out
	if diag.Severity == SevError {
		w = d.errOut
	}
	d.print(w, diag)
}

func (d *Diagnostics) print(w io.Writer, diag Diagnostic) {
	sev := severityColors[diag.Severity].Sprint(diag.Severity)
	if diag.HasPos {
		fmt.Fprintf(w, "%s: %s: %s\n", diag.Pos, sev, diag.Message)
	} else {
		fmt.Fprintf(w, "%s: %s\n", sev, diag.Message)
	}
	if !diag.HasPos {
		return
	}
	lines, ok := d.sources[diag.Pos.Filename]
	if !ok || diag.Pos.Line < 1 || diag.Pos.Line > len(lines) {
		return
	}
	line := strings.TrimRight(string(lines[diag.Pos.Line-1]), "\r")
	fmt.Fprintf(w, "    %s\n", line)
	fmt.Fprintf(w, "    %s%s\n", caretPadding(line, diag.Pos.Column), severityColors[diag.Severity].Sprint("^"))
}

// caretPadding returns the whitespace that puts a caret under the given
// 1-based byte column of line.
func caretPadding(line string, column int) string {
	if column-1 > len(line) {
		column = len(line) + 1
	}
	var b strings.Builder
	for _, r := range line[:max(column-1, 0)] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func (d *Diagnostics) Errorf(pos Pos, format string, args ...any) {
	d.Report(Diagnostic{Severity: SevError, Pos: pos, HasPos: true, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) Warningf(pos Pos, format string, args ...any) {
	d.Report(Diagnostic{Severity: SevWarning, Pos: pos, HasPos: true, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) Infof(format string, args ...any) {
	d.Report(Diagnostic{Severity: SevInfo, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) Debugf(format string, args ...any) {
	d.Report(Diagnostic{Severity: SevDebug, Message: fmt.Sprintf(format, args...)})
}

// ReportError reports err as an error, positioned when err wraps an Error.
func (d *Diagnostics) ReportError(err error) {
	var perr Error
	if errors.As(err, &perr) {
		d.Report(Diagnostic{Severity: SevError, Pos: perr.Pos(), HasPos: true, Message: perr.Message()})
		return
	}
	d.Report(Diagnostic{Severity: SevError, Message: err.Error()})
}

func (d *Diagnostics) ErrorCount() int {
	return d.counts[SevError]
}

func (d *Diagnostics) WarningCount() int {
	return d.counts[SevWarning]
}

func (d *Diagnostics) InfoCount() int {
	return d.counts[SevInfo]
}

func (d *Diagnostics) Items() []Diagnostic {
	items := make([]Diagnostic, len(d.items))
	copy(items, d.items)
	return items
}
