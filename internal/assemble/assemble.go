// Package assemble implements the assembler core (§4.2): turning one
// preprocessed source file into an object.Format by walking statements
// (label definitions or mnemonic expressions), decoding mnemonics into
// isa.Instruction values, and recording a LabelRequest wherever an operand
// names a label whose address isn't known yet.
package assemble

import (
	"fmt"
	"strings"

	"rvm/internal/object"
)

// Assembler holds the state accumulated while walking one source file's
// statements: the object under construction, the active section, and the
// bookkeeping for %exp/%entry/%header directives that must be resolved
// after the whole file has been seen.
type Assembler struct {
	filename string
	format   *object.Format
	section  *object.Section
	kind     object.Kind

	pendingExports []exportRequest
	labelCounter   int
}

type exportRequest struct {
	Name string
	Loc  object.SourceLocation
}

// Assemble parses source (already run through the director/preprocessor
// layer conceptually -- in this toolchain that's preprocess, called
// internally) into a single object.Format.
func Assemble(source, filename string) (*object.Format, error) {
	lines, err := preprocess(source, filename)
	if err != nil {
		return nil, err
	}

	a := &Assembler{filename: filename, format: object.NewFormat()}

	for _, rl := range lines {
		if err := a.statement(rl.Text, rl.Line); err != nil {
			return nil, err
		}
	}

	for _, exp := range a.pendingExports {
		if err := a.exportLabel(exp); err != nil {
			return nil, err
		}
	}

	return a.format, nil
}

func (a *Assembler) loc(line int64) object.SourceLocation { return loc(a.filename, line) }

func (a *Assembler) exportLabel(exp exportRequest) error {
	for _, sec := range []*object.Section{a.format.Code, a.format.Data} {
		for _, l := range sec.Labels {
			if l.Name == exp.Name {
				sec.ExposedLabels = append(sec.ExposedLabels, l)
				return nil
			}
		}
	}
	return fmt.Errorf("assemble: %s: %%exp %s names a label that is never defined in this file", exp.Loc, exp.Name)
}

func (a *Assembler) requireSection(line int64) error {
	if a.section == nil {
		return fmt.Errorf("assemble: %s: statement would emit bytes before any %%section directive", a.loc(line))
	}
	return nil
}

func (a *Assembler) statement(text string, line int64) error {
	if strings.HasPrefix(text, "%") {
		return a.directive(text, line)
	}

	if idx := strings.IndexByte(text, ':'); idx >= 0 && !strings.ContainsAny(text[:idx], " \t,") {
		name := strings.TrimSpace(text[:idx])
		if name == "" {
			return fmt.Errorf("assemble: %s: empty label name", a.loc(line))
		}
		if err := a.requireSection(line); err != nil {
			return err
		}
		a.section.DefineLabel(name, a.loc(line), false)
		rest := strings.TrimSpace(text[idx+1:])
		if rest == "" {
			return nil
		}
		text = rest
	}

	return a.expression(text, line)
}

// PreprocessedLines exposes the preprocessor's surviving output for the
// assembler binary's progressive debug dumps: comments, blank lines, and
// %def/%ifdef bookkeeping already resolved away, one entry per line that
// statement parsing will actually see.
func PreprocessedLines(source, filename string) ([]string, error) {
	lines, err := preprocess(source, filename)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, rl := range lines {
		out[i] = rl.Text
	}
	return out, nil
}

// Tokens splits one preprocessed line into the same mnemonic/operand
// pieces expression() itself works from, for the assembler binary's
// token dump.
func Tokens(line string) []string {
	mnemonic, operands := splitMnemonicOperands(line)
	if mnemonic == "" {
		return nil
	}
	return append([]string{mnemonic}, operands...)
}

func splitMnemonicOperands(text string) (string, []string) {
	fields := strings.SplitN(text, " ", 2)
	mnemonic := fields[0]
	if len(fields) == 1 {
		return mnemonic, nil
	}
	var operands []string
	for _, op := range strings.Split(fields[1], ",") {
		op = strings.TrimSpace(op)
		if op != "" {
			operands = append(operands, op)
		}
	}
	return mnemonic, operands
}

func (a *Assembler) expression(text string, line int64) error {
	mnemonic, operands := splitMnemonicOperands(text)
	lower := strings.ToLower(mnemonic)

	switch lower {
	case "db", "dw", "dd":
		return a.recordSymbol(line, func() error { return a.dataDirective(lower, operands, line) })
	case "resb", "resw":
		return a.recordSymbol(line, func() error { return a.reserveDirective(lower, operands, line) })
	}

	if err := a.requireSection(line); err != nil {
		return err
	}
	if a.kind != object.KindCode {
		return fmt.Errorf("assemble: %s: instructions cannot appear outside %%section code", a.loc(line))
	}

	dec, err := decodeMnemonic(mnemonic)
	if err != nil {
		return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
	}
	return a.recordSymbol(line, func() error { return a.emitInstruction(lower, dec, operands, line) })
}

// recordSymbol runs emit and, if it succeeds and actually wrote bytes,
// records a debug symbol at the position those bytes start at -- the
// position-to-source-location map the -d/-D sidecar ships and the VM's
// fault reporting consults.
func (a *Assembler) recordSymbol(line int64, emit func() error) error {
	sec := a.section
	var before int
	if sec != nil {
		before = sec.Len()
	}
	if err := emit(); err != nil {
		return err
	}
	if sec != nil && sec.Len() > before {
		sec.RecordSymbol(object.DebugSymbol{Pos: uint32(before), Loc: a.loc(line)})
	}
	return nil
}
