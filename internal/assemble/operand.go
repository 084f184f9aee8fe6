package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"rvm/internal/isa"
)

// registerAliases maps the source-text register names (the original
// toolchain's "ra"/"rb"/.../"rip"/"rsp" convention, also used by the
// spec's own worked examples) onto this ISA's bare register names.
var registerAliases = map[string]isa.Register{
	"ra": isa.RegA, "rb": isa.RegB, "rc": isa.RegC, "rd": isa.RegD,
	"r1": isa.Reg1, "r2": isa.Reg2, "r3": isa.Reg3, "r4": isa.Reg4, "r5": isa.Reg5,
	"r6": isa.Reg6, "r7": isa.Reg7, "r8": isa.Reg8, "r9": isa.Reg9,
	"rz": isa.RegZ, "rip": isa.RegIP, "rsp": isa.RegSP,
}

func lookupRegister(tok string) (isa.Register, bool) {
	if r, ok := registerAliases[strings.ToLower(tok)]; ok {
		return r, true
	}
	return isa.ParseRegister(strings.ToLower(tok))
}

// parsedOperand is an operand whose value may not be known until link
// time: Label is non-empty when tok was an identifier rather than a
// register name or numeric/character literal.
type parsedOperand struct {
	Operand isa.Operand
	Label   string
}

// parseOperand converts one comma-separated operand token into an
// Operand of the given addressing mode. Register-like modes expect a
// register name; value modes (Memory, MemoryAddress, Immediate) accept a
// numeric literal, a character literal, or an identifier -- the last of
// which becomes a pending label request resolved by the linker.
func parseOperand(tok string, mode isa.Mode) (parsedOperand, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return parsedOperand{}, fmt.Errorf("assemble: empty operand")
	}

	if mode.IsRegisterLike() {
		reg, ok := lookupRegister(tok)
		if !ok {
			return parsedOperand{}, fmt.Errorf("assemble: %q is not a known register", tok)
		}
		if mode == isa.ModeRegisterAddress {
			return parsedOperand{Operand: isa.RegAddrOperand(reg)}, nil
		}
		return parsedOperand{Operand: isa.RegOperand(reg)}, nil
	}

	if v, ok := parseNumberOrChar(tok); ok {
		return parsedOperand{Operand: valueOperand(mode, v)}, nil
	}

	if !isIdentifier(tok) {
		return parsedOperand{}, fmt.Errorf("assemble: %q is neither a number nor a valid label name", tok)
	}
	return parsedOperand{Operand: valueOperand(mode, 0), Label: tok}, nil
}

func valueOperand(mode isa.Mode, v uint32) isa.Operand {
	switch mode {
	case isa.ModeMemory:
		return isa.MemOperand(v)
	case isa.ModeMemoryAddress:
		return isa.MemAddrOperand(v)
	default:
		return isa.ImmOperand(v)
	}
}

func isIdentifier(tok string) bool {
	for i, r := range tok {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return len(tok) > 0
}

// parseNumberOrChar recognises decimal, 0x-hex, and 'c' character-literal
// operand tokens.
func parseNumberOrChar(tok string) (uint32, bool) {
	if len(tok) >= 3 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
		body := tok[1 : len(tok)-1]
		r := []rune(body)
		if len(r) == 1 {
			return uint32(r[0]), true
		}
		return 0, false
	}
	neg := strings.HasPrefix(tok, "-")
	trimmed := strings.TrimPrefix(tok, "-")
	base := 10
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		base = 16
		trimmed = trimmed[2:]
	}
	if trimmed == "" {
		return 0, false
	}
	for _, c := range trimmed {
		ok := (c >= '0' && c <= '9') || (base == 16 && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')))
		if !ok {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(trimmed, base, 64)
	if err != nil {
		return 0, false
	}
	v := uint32(n)
	if neg {
		v = uint32(-int64(n))
	}
	return v, true
}

// parseFlagMask decodes a jif flag operand written as a run of flag
// letters (C, Z, B, A, E), matching the disassembler's own rendering.
func parseFlagMask(tok string) (uint8, error) {
	var mask uint8
	for _, c := range strings.ToUpper(tok) {
		switch c {
		case 'E':
			mask |= isa.FlagE
		case 'A':
			mask |= isa.FlagA
		case 'B':
			mask |= isa.FlagB
		case 'Z':
			mask |= isa.FlagZ
		case 'C':
			mask |= isa.FlagC
		default:
			return 0, fmt.Errorf("assemble: %q is not a valid flag letter (expected any of CZBAE)", string(c))
		}
	}
	return mask, nil
}
