package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"rvm/internal/object"
)

// directive dispatches one "%..." line. Only the directives whose effect
// on assembler *output* the spec documents (§6) are handled here; textual
// macro expansion and conditional assembly already happened in
// preprocess.
func (a *Assembler) directive(text string, line int64) error {
	fields := strings.Fields(text)
	name := fields[0]

	switch name {
	case "%section":
		if len(fields) != 2 {
			return fmt.Errorf("assemble: %s: %%section expects exactly one argument (code|data)", a.loc(line))
		}
		switch fields[1] {
		case "code":
			a.kind = object.KindCode
			a.section = a.format.Code
		case "data":
			a.kind = object.KindData
			a.section = a.format.Data
		default:
			return fmt.Errorf("assemble: %s: unknown section %q (expected code or data)", a.loc(line), fields[1])
		}
		return nil

	case "%exp":
		if len(fields) != 2 {
			return fmt.Errorf("assemble: %s: %%exp expects exactly one label name", a.loc(line))
		}
		a.pendingExports = append(a.pendingExports, exportRequest{Name: fields[1], Loc: a.loc(line)})
		return nil

	case "%ext":
		if len(fields) != 2 {
			return fmt.Errorf("assemble: %s: %%ext expects exactly one label name", a.loc(line))
		}
		a.format.MarkExternal(fields[1], a.loc(line))
		return nil

	case "%entry":
		if len(fields) != 2 {
			return fmt.Errorf("assemble: %s: %%entry expects a label or a numeric address", a.loc(line))
		}
		a.ensureHeader()
		if v, ok := parseNumberOrChar(fields[1]); ok {
			a.format.Header.SetEntryAddr(v)
		} else {
			a.format.Header.SetEntryLabel(fields[1], a.loc(line))
		}
		return nil

	case "%header":
		return a.headerDirective(fields, line)

	default:
		return fmt.Errorf("assemble: %s: unknown directive %q", a.loc(line), name)
	}
}

func (a *Assembler) ensureHeader() {
	if a.format.Header == nil {
		a.format.Header = object.NewHeaderConstructor()
	}
}

func (a *Assembler) headerDirective(fields []string, line int64) error {
	a.ensureHeader()
	if len(fields) == 3 && fields[1] == "flags" {
		n, err := strconv.ParseUint(fields[2], 0, 8)
		if err != nil {
			return fmt.Errorf("assemble: %s: invalid %%header flags value: %w", a.loc(line), err)
		}
		a.format.Header.SetFlags(uint8(n))
		return nil
	}
	if len(fields) == 3 && fields[1] == "version" {
		n, err := strconv.ParseUint(fields[2], 0, 16)
		if err != nil {
			return fmt.Errorf("assemble: %s: invalid %%header version value: %w", a.loc(line), err)
		}
		if n != 0 {
			return fmt.Errorf("assemble: %s: only header version 0x0000 is supported", a.loc(line))
		}
		return nil
	}
	if len(fields) == 4 && fields[1] == "stack" && fields[2] == "loc" {
		n, err := strconv.ParseUint(fields[3], 0, 16)
		if err != nil {
			return fmt.Errorf("assemble: %s: invalid %%header stack loc value: %w", a.loc(line), err)
		}
		a.format.Header.SetStackPos(uint16(n))
		return nil
	}
	if len(fields) == 4 && fields[1] == "stack" && fields[2] == "size" {
		n, err := strconv.ParseUint(fields[3], 0, 16)
		if err != nil {
			return fmt.Errorf("assemble: %s: invalid %%header stack size value: %w", a.loc(line), err)
		}
		a.format.Header.SetStackSize(uint16(n))
		return nil
	}
	return fmt.Errorf("assemble: %s: unrecognised %%header directive", a.loc(line))
}
