// Command rvm loads and runs one executable image.
//
// Grounded on original_source/src/vm/main.rs: -d trace, -s section mode,
// -r register dump, -f debug-symbol sidecar, exactly one positional
// input file, and the fault report printed on a non-clean exit (current
// IP, the nearest source location if a sidecar was loaded, and a hex dump
// of the bytes around the fault).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"rvm/internal/cli"
	"rvm/internal/debugsym"
	"rvm/internal/diag"
	"rvm/internal/vm"
)

func main() {
	root, logger := cli.Root("rvm", "Run an rvm executable")

	var (
		trace       bool
		sectionMode bool
		regDump     bool
		symFile     string
	)

	root.Use = "rvm [file]"
	root.Args = cobra.ExactArgs(1)
	root.Flags().BoolVarP(&trace, "trace", "d", false, "print every decoded instruction before executing it")
	root.Flags().BoolVarP(&sectionMode, "section", "s", false, "run from a separate code array holding the whole image instead of loading it into memory")
	root.Flags().BoolVarP(&regDump, "registers", "r", false, "dump every register on clean exit")
	root.Flags().StringVarP(&symFile, "symbols", "f", "", "load a debug-symbol sidecar produced by rvmasm -d")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return diag.IO(err)
		}

		var provider *debugsym.Provider
		if symFile != "" {
			provider, err = debugsym.Load(symFile)
			if err != nil {
				return err
			}
			if len(provider.Symbols) == 0 {
				return diag.Basic("%s contains no debug symbols", symFile)
			}
		}

		machine, err := vm.LoadRaw(raw, vm.Options{
			Trace:       trace,
			SectionMode: sectionMode,
			RegDump:     regDump,
			DebugSym:    provider,
		})
		if err != nil {
			return err
		}

		runErr := machine.Run()
		if runErr != nil {
			diag.PrintErr(runErr)
			os.Exit(1)
		}

		diag.Separator()
		logger.Infof("Execution finished!")
		diag.Separator()
		return nil
	}

	if err := root.Execute(); err != nil {
		cli.Fail(err)
	}
}
