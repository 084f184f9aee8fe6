package disasm

import (
	"fmt"
	"strings"

	"rvm/internal/isa"
)

// render turns one decoded instruction back into assembly text,
// substituting a synthesised label name for any Memory/MemoryAddress/
// Immediate operand whose value lies inside the code region -- the
// inverse of what the assembler's label requests produce. ALU-complex
// operands are always printed as raw hex.
func (d *Disassembler) render(ins isa.Instruction, at uint32) string {
	switch v := ins.(type) {
	case isa.Nop:
		return "nop"
	case isa.Hlt:
		return "hlt"
	case isa.Clf:
		return "clf"
	case isa.Dbg:
		return "dbg"
	case isa.Ret:
		return "ret"
	case isa.PshFlg:
		return "pshflg"
	case isa.PopFlg:
		return "popflg"
	case isa.Inc:
		return fmt.Sprintf("inc %s", regName(v.Reg))
	case isa.Dec:
		return fmt.Sprintf("dec %s", regName(v.Reg))
	case isa.Lea:
		return fmt.Sprintf("lea %s", regName(v.Reg))
	case isa.SerOut:
		return fmt.Sprintf("__out %s", regName(v.Reg))
	case isa.SerIn:
		return fmt.Sprintf("__in %s", regName(v.Reg))
	case isa.SerIO:
		return fmt.Sprintf("__io 0x%x", v.Imm)
	case isa.Int:
		return fmt.Sprintf("int 0x%x", v.Imm)
	case isa.Mov:
		mode, a, b := d.renderPair(v.Src, v.Dst)
		return fmt.Sprintf("%smov%s %s, %s", v.Width.String(), mode, a, b)
	case isa.Psh:
		mode, a := d.renderOne(v.Src)
		return fmt.Sprintf("%spsh%s %s", v.Width.String(), mode, a)
	case isa.Pop:
		mode, a := d.renderOne(v.Dst)
		return fmt.Sprintf("%spop%s %s", v.Width.String(), mode, a)
	case isa.Jmp:
		mode, a := d.renderOne(v.Target)
		return fmt.Sprintf("jmp%s %s", mode, a)
	case isa.Cal:
		mode, a := d.renderOne(v.Target)
		return fmt.Sprintf("cal%s %s", mode, a)
	case isa.Jif:
		mode, a := d.renderOne(v.Target)
		return fmt.Sprintf("jif%s %s, %s", mode, a, flagLetters(v.FlagMask))
	case isa.Not:
		mode, a, b := d.renderPair(v.Src, v.Dst)
		return fmt.Sprintf("not%s %s, %s", mode, a, b)
	case isa.Cmp:
		mode, a, b := d.renderPair(v.Lhs, v.Rhs)
		return fmt.Sprintf("cmp%s %s, %s", mode, a, b)
	case isa.ALU3:
		return d.renderALU(v)
	default:
		return fmt.Sprintf("<unknown instruction %T>", ins)
	}
}

func regName(r isa.Register) string { return "r" + r.String() }

// operandText renders one operand; allowLabel controls whether a
// Memory/MemoryAddress/Immediate value inside the code region is
// synthesised into a "_label_..." name (values outside it are always
// printed as a raw hex literal). The original disassembler only
// synthesises labels for mov/psh/pop/jmp/jif/cal targets, never for
// ALU-complex operands.
func (d *Disassembler) operandText(op isa.Operand, allowLabel bool) (modeLetter, text string) {
	switch op.Mode {
	case isa.ModeRegister:
		return "r", regName(op.Reg)
	case isa.ModeRegisterAddress:
		return "ra", regName(op.Reg)
	case isa.ModeMemory:
		return "m", valueText(d, op.Value, allowLabel)
	case isa.ModeMemoryAddress:
		return "ma", valueText(d, op.Value, allowLabel)
	case isa.ModeImmediate:
		return "i", valueText(d, op.Value, allowLabel)
	default:
		return "?", "?"
	}
}

func valueText(d *Disassembler, v uint32, allowLabel bool) string {
	if allowLabel && v < uint32(len(d.code)) {
		return d.labelFor(v)
	}
	return fmt.Sprintf("0x%x", v)
}

func (d *Disassembler) renderOne(op isa.Operand) (string, string) {
	m, t := d.operandText(op, true)
	return m, t
}

func (d *Disassembler) renderPair(a, b isa.Operand) (string, string, string) {
	ma, ta := d.operandText(a, true)
	mb, tb := d.operandText(b, true)
	return ma + mb, ta, tb
}

func (d *Disassembler) renderALU(v isa.ALU3) string {
	if v.Stack {
		return v.Op.String() + "s"
	}
	ma, ta := d.operandText(v.A, false)
	mb, tb := d.operandText(v.B, false)
	mc, tc := d.operandText(v.Dst, false)
	return fmt.Sprintf("%s%s%s%s %s, %s, %s", v.Op.String(), ma, mb, mc, ta, tb, tc)
}

func flagLetters(mask uint8) string {
	var b strings.Builder
	if mask&isa.FlagC != 0 {
		b.WriteByte('C')
	}
	if mask&isa.FlagZ != 0 {
		b.WriteByte('Z')
	}
	if mask&isa.FlagB != 0 {
		b.WriteByte('B')
	}
	if mask&isa.FlagA != 0 {
		b.WriteByte('A')
	}
	if mask&isa.FlagE != 0 {
		b.WriteByte('E')
	}
	return b.String()
}
