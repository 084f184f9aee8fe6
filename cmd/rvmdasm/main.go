// Command rvmdasm disassembles one executable image into a textual
// listing, printed to stdout or written to -o.
//
// Grounded on original_source/src/dasm/main.rs: exactly one positional
// input file, an optional -o output path, and the magenta separator rule.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvm/internal/cli"
	"rvm/internal/diag"
	"rvm/internal/disasm"
)

func main() {
	root, logger := cli.Root("rvmdasm", "Disassemble an rvm executable into a textual listing")

	var outPath string
	root.Use = "rvmdasm [file]"
	root.Args = cobra.ExactArgs(1)
	root.Flags().StringVarP(&outPath, "out", "o", "", "write the listing here instead of stdout")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		diag.Separator()
		defer diag.Separator()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return diag.IO(err)
		}

		d, err := disasm.FromExecutableBytes(raw)
		if err != nil {
			return diag.Basic("%v", err)
		}
		listing := d.Disassemble()

		if outPath == "" {
			fmt.Print(listing)
			return nil
		}
		if err := os.WriteFile(outPath, []byte(listing), 0o644); err != nil {
			return diag.IO(err)
		}
		logger.Infof("wrote %s", outPath)
		return nil
	}

	if err := root.Execute(); err != nil {
		cli.Fail(err)
	}
}
