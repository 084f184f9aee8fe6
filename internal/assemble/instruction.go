package assemble

import (
	"fmt"

	"rvm/internal/isa"
)

// operandFieldOffsets mirrors isa's encodeOperands/decodeOperands greedy
// pairing rule (codec_operands.go): adjacent register-like operands share
// one byte; every other operand gets its own 4-byte field. The assembler
// needs to know where each operand's bytes land -- not just how they're
// packed -- so a label-valued operand's zero-filled placeholder can be
// patched at link time.
func operandFieldOffsets(modes []isa.Mode) []int {
	offs := make([]int, len(modes))
	i, pos := 0, 0
	for i < len(modes) {
		if modes[i].IsRegisterLike() && i+1 < len(modes) && modes[i+1].IsRegisterLike() {
			offs[i], offs[i+1] = pos, pos
			pos++
			i += 2
			continue
		}
		offs[i] = pos
		if modes[i].IsRegisterLike() {
			pos++
		} else {
			pos += 4
		}
		i++
	}
	return offs
}

// emitInstruction builds the isa.Instruction named by mnemonic/dec from
// the parsed operand tokens, encodes it into the active section, and
// records a LabelRequest for every operand that named an unresolved
// label.
func (a *Assembler) emitInstruction(mnemonic string, dec decoded, operands []string, line int64) error {
	switch dec.Family {
	case famControl:
		return a.emitControl(mnemonic, operands, line)
	case famMov:
		return a.emitTwoOperand(dec.Modes, operands, line, func(src, dst isa.Operand) isa.Instruction {
			return isa.Mov{Width: dec.Width, Src: src, Dst: dst}
		})
	case famNot:
		return a.emitTwoOperand(dec.Modes, operands, line, func(src, dst isa.Operand) isa.Instruction {
			return isa.Not{Src: src, Dst: dst}
		})
	case famCmp:
		return a.emitTwoOperand(dec.Modes, operands, line, func(lhs, rhs isa.Operand) isa.Instruction {
			return isa.Cmp{Lhs: lhs, Rhs: rhs}
		})
	case famPsh:
		return a.emitOneOperand(dec.Modes, operands, line, func(op isa.Operand) isa.Instruction {
			return isa.Psh{Width: dec.Width, Src: op}
		})
	case famPop:
		return a.emitOneOperand(dec.Modes, operands, line, func(op isa.Operand) isa.Instruction {
			return isa.Pop{Width: dec.Width, Dst: op}
		})
	case famJmp:
		return a.emitOneOperand(dec.Modes, operands, line, func(op isa.Operand) isa.Instruction {
			return isa.Jmp{Target: op}
		})
	case famCal:
		return a.emitOneOperand(dec.Modes, operands, line, func(op isa.Operand) isa.Instruction {
			return isa.Cal{Target: op}
		})
	case famJif:
		return a.emitJif(dec.Modes, operands, line)
	case famALU:
		return a.emitALU(dec, operands, line)
	default:
		return fmt.Errorf("assemble: %s: internal: unhandled family for %q", a.loc(line), mnemonic)
	}
}

func (a *Assembler) emitControl(mnemonic string, operands []string, line int64) error {
	want := func(n int) error {
		if len(operands) != n {
			return fmt.Errorf("assemble: %s: %s expects %d operand(s), got %d", a.loc(line), mnemonic, n, len(operands))
		}
		return nil
	}
	oneReg := func() (isa.Register, error) {
		if err := want(1); err != nil {
			return 0, err
		}
		r, ok := lookupRegister(operands[0])
		if !ok {
			return 0, fmt.Errorf("assemble: %s: %q is not a known register", a.loc(line), operands[0])
		}
		return r, nil
	}
	oneImm := func() (uint32, error) {
		if err := want(1); err != nil {
			return 0, err
		}
		v, ok := parseNumberOrChar(operands[0])
		if !ok {
			return 0, fmt.Errorf("assemble: %s: %q must be a numeric literal", a.loc(line), operands[0])
		}
		return v, nil
	}

	var ins isa.Instruction
	switch mnemonic {
	case "nop":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.Nop{}
	case "hlt":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.Hlt{}
	case "clf":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.Clf{}
	case "dbg":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.Dbg{}
	case "ret":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.Ret{}
	case "pshflg":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.PshFlg{}
	case "popflg":
		if err := want(0); err != nil {
			return err
		}
		ins = isa.PopFlg{}
	case "inc":
		r, err := oneReg()
		if err != nil {
			return err
		}
		ins = isa.Inc{Reg: r}
	case "dec":
		r, err := oneReg()
		if err != nil {
			return err
		}
		ins = isa.Dec{Reg: r}
	case "lea":
		r, err := oneReg()
		if err != nil {
			return err
		}
		ins = isa.Lea{Reg: r}
	case "__out":
		r, err := oneReg()
		if err != nil {
			return err
		}
		ins = isa.SerOut{Reg: r}
	case "__in":
		r, err := oneReg()
		if err != nil {
			return err
		}
		ins = isa.SerIn{Reg: r}
	case "__io":
		v, err := oneImm()
		if err != nil {
			return err
		}
		ins = isa.SerIO{Imm: v}
	case "int":
		v, err := oneImm()
		if err != nil {
			return err
		}
		ins = isa.Int{Imm: v}
	default:
		return fmt.Errorf("assemble: %s: internal: unhandled control mnemonic %q", a.loc(line), mnemonic)
	}

	return a.encode(ins, nil, line)
}

func (a *Assembler) emitOneOperand(modes []isa.Mode, operands []string, line int64, build func(isa.Operand) isa.Instruction) error {
	if len(operands) != 1 {
		return fmt.Errorf("assemble: %s: expected exactly one operand, got %d", a.loc(line), len(operands))
	}
	p, err := parseOperand(operands[0], modes[0])
	if err != nil {
		return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
	}
	labels := map[int]string{}
	if p.Label != "" {
		labels[0] = p.Label
	}
	return a.encode(build(p.Operand), labels, line)
}

func (a *Assembler) emitTwoOperand(modes []isa.Mode, operands []string, line int64, build func(a, b isa.Operand) isa.Instruction) error {
	if len(operands) != 2 {
		return fmt.Errorf("assemble: %s: expected exactly two operands, got %d", a.loc(line), len(operands))
	}
	labels := map[int]string{}
	ops := make([]isa.Operand, 2)
	for i := range ops {
		p, err := parseOperand(operands[i], modes[i])
		if err != nil {
			return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
		}
		ops[i] = p.Operand
		if p.Label != "" {
			labels[i] = p.Label
		}
	}
	return a.encode(build(ops[0], ops[1]), labels, line)
}

func (a *Assembler) emitJif(modes []isa.Mode, operands []string, line int64) error {
	if len(operands) != 2 {
		return fmt.Errorf("assemble: %s: jif expects a target and a flag mask, got %d operand(s)", a.loc(line), len(operands))
	}
	p, err := parseOperand(operands[0], modes[0])
	if err != nil {
		return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
	}
	mask, err := parseFlagMask(operands[1])
	if err != nil {
		return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
	}
	labels := map[int]string{}
	if p.Label != "" {
		labels[0] = p.Label
	}
	return a.encode(isa.Jif{Target: p.Operand, FlagMask: mask}, labels, line)
}

func (a *Assembler) emitALU(dec decoded, operands []string, line int64) error {
	if dec.Stack {
		if len(operands) != 0 {
			return fmt.Errorf("assemble: %s: stack-mode ALU operation takes no operands", a.loc(line))
		}
		return a.encode(isa.ALU3{Op: dec.ALUOp, Stack: true}, nil, line)
	}
	if len(operands) != 3 {
		return fmt.Errorf("assemble: %s: expected exactly three operands, got %d", a.loc(line), len(operands))
	}
	labels := map[int]string{}
	ops := make([]isa.Operand, 3)
	for i := range ops {
		p, err := parseOperand(operands[i], dec.Modes[i])
		if err != nil {
			return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
		}
		ops[i] = p.Operand
		if p.Label != "" {
			labels[i] = p.Label
		}
	}
	return a.encode(isa.ALU3{Op: dec.ALUOp, A: ops[0], B: ops[1], Dst: ops[2]}, labels, line)
}

// modesOf extracts the operand-mode sequence actually carried by an
// encoded instruction, in encoding order, for offset computation.
func modesOf(ins isa.Instruction) []isa.Mode {
	switch v := ins.(type) {
	case isa.Mov:
		return []isa.Mode{v.Src.Mode, v.Dst.Mode}
	case isa.Not:
		return []isa.Mode{v.Src.Mode, v.Dst.Mode}
	case isa.Cmp:
		return []isa.Mode{v.Lhs.Mode, v.Rhs.Mode}
	case isa.Psh:
		return []isa.Mode{v.Src.Mode}
	case isa.Pop:
		return []isa.Mode{v.Dst.Mode}
	case isa.Jmp:
		return []isa.Mode{v.Target.Mode}
	case isa.Cal:
		return []isa.Mode{v.Target.Mode}
	case isa.Jif:
		return []isa.Mode{v.Target.Mode}
	case isa.ALU3:
		if v.Stack {
			return nil
		}
		return []isa.Mode{v.A.Mode, v.B.Mode, v.Dst.Mode}
	default:
		return nil
	}
}

// opcodeBytes is the fixed size of every instruction's opcode field; this
// ISA never uses a multi-byte opcode.
const opcodeBytes = 1

// encode writes ins into the active section and records a LabelRequest
// for each entry in labels (operand index -> label name).
func (a *Assembler) encode(ins isa.Instruction, labels map[int]string, line int64) error {
	start := a.section.Len()
	if err := isa.Encode(ins, func(b byte) { a.section.WriteByte(b) }); err != nil {
		return fmt.Errorf("assemble: %s: %w", a.loc(line), err)
	}
	if len(labels) == 0 {
		return nil
	}
	modes := modesOf(ins)
	offs := operandFieldOffsets(modes)
	for idx, name := range labels {
		pos := start + opcodeBytes + offs[idx]
		a.section.RecordPatch(name, a.loc(line), uint32(pos))
	}
	return nil
}
