// Command rvmasm assembles one or more source files and links them into
// a single executable image. Assembly and linking happen inside this one
// binary -- the original toolchain never ships a standalone link binary
// either, since objects are never themselves written to disk.
//
// Grounded on original_source/src/asm/main.rs: the -t/-p/-s progressive
// debug dumps, the -o output path (defaulting to out.bin), and the magenta
// separator rule printed before and after the run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvm/internal/assemble"
	"rvm/internal/cli"
	"rvm/internal/debugsym"
	"rvm/internal/diag"
	"rvm/internal/link"
	"rvm/internal/object"
)

func main() {
	root, logger := cli.Root("rvmasm", "Assemble and link source files into an rvm executable")

	var (
		outPath    string
		debugBin   string
		debugHuman string
		dumpTokens bool
		dumpPre    bool
		dumpStmts  bool
	)

	root.Use = "rvmasm [files...]"
	root.Args = cobra.MinimumNArgs(1)
	root.Flags().StringVarP(&outPath, "out", "o", "out.bin", "output executable path")
	root.Flags().StringVarP(&debugBin, "debug", "d", "", "write a binary debug-symbol sidecar to this path")
	root.Flags().StringVarP(&debugHuman, "debug-human", "D", "", "write a human-readable debug-symbol listing to this path")
	root.Flags().BoolVarP(&dumpTokens, "tokens", "t", false, "print each line's mnemonic/operand tokens")
	root.Flags().BoolVarP(&dumpPre, "preprocessed", "p", false, "print preprocessed source lines")
	root.Flags().BoolVarP(&dumpStmts, "statements", "s", false, "print each file's assembled code and data byte counts")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		diag.Separator()
		defer diag.Separator()

		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return diag.IOf("cannot read %s: %v", path, err)
			}
			if info.IsDir() {
				return diag.Basic("%s is a directory, not a source file", path)
			}
		}

		var formats []*object.Format
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return diag.IO(err)
			}
			source := string(src)

			if dumpPre || dumpTokens {
				lines, err := assemble.PreprocessedLines(source, path)
				if err != nil {
					return err
				}
				if dumpPre {
					logger.Infof("-- preprocessed: %s --", path)
					for _, l := range lines {
						logger.Infof("%s", l)
					}
				}
				if dumpTokens {
					logger.Infof("-- tokens: %s --", path)
					for _, l := range lines {
						logger.Infof("%v", assemble.Tokens(l))
					}
				}
			}

			format, err := assemble.Assemble(source, path)
			if err != nil {
				return err
			}
			if dumpStmts {
				logger.Infof("-- %s: %d code bytes, %d data bytes --", path, format.Code.Len(), format.Data.Len())
			}
			formats = append(formats, format)
		}

		exe, symbols, err := link.New(formats).Link()
		if err != nil {
			return err
		}

		if err := os.WriteFile(outPath, exe.Bytes(), 0o644); err != nil {
			return diag.IO(err)
		}
		logger.Infof("wrote %s (%d bytes)", outPath, len(exe.Bytes()))

		if debugBin != "" {
			if err := os.WriteFile(debugBin, debugsym.Encode(symbols), 0o644); err != nil {
				return diag.IO(err)
			}
			logger.Infof("wrote debug symbols to %s", debugBin)
		}
		if debugHuman != "" {
			var buf []byte
			for _, s := range symbols {
				buf = append(buf, []byte(fmt.Sprintf("0x%08x %s\n", s.Pos, s.Loc))...)
			}
			if err := os.WriteFile(debugHuman, buf, 0o644); err != nil {
				return diag.IO(err)
			}
			logger.Infof("wrote human-readable debug listing to %s", debugHuman)
		}

		return nil
	}

	if err := root.Execute(); err != nil {
		cli.Fail(err)
	}
}
