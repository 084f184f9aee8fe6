// Package cli holds the pieces shared by the three command binaries
// (rvmasm, rvmdasm, rvm): colourised root-command scaffolding and a
// leveled logger built the same way the original binaries print around
// their work -- a magenta rule before and after, plain red for fatal
// errors, nothing fancier.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Logger is the shared leveled logger every subcommand writes through.
// Verbose lines are suppressed unless -v/--verbose was passed; everything
// else always prints. Grounded on internal/diag's existing colour
// conventions rather than introducing a new scheme.
type Logger struct {
	Out     io.Writer
	Verbose bool
}

func NewLogger(out io.Writer) *Logger {
	return &Logger{Out: out}
}

func (l *Logger) Infof(format string, args ...any) {
	fmt.Fprintf(l.Out, format+"\n", args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.Verbose {
		return
	}
	color.New(color.FgCyan).Fprintf(l.Out, "debug: "+format+"\n", args...)
}

// Root builds the persistent --no-color / --verbose flags shared by every
// binary and wires --no-color straight into fatih/color's global switch,
// the same knob every colourised print in internal/diag already reads.
func Root(use, short string) (*cobra.Command, *Logger) {
	logger := NewLogger(os.Stdout)
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var noColor bool
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	cmd.PersistentFlags().BoolVarP(&logger.Verbose, "verbose", "v", false, "print verbose diagnostic output")
	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
	})
	return cmd, logger
}

// Fail prints err the way every original binary renders a fatal error --
// plain red, no prefix -- and exits the process with a nonzero status.
func Fail(err error) {
	color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
