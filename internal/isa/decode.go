package isa

// Decode reads one instruction's worth of bytes via fetch and returns the
// decoded variant. Decode(Encode(x)) == x for every well-formed x.
func Decode(fetch func() (byte, error)) (Instruction, error) {
	op, err := fetch()
	if err != nil {
		return nil, err
	}

	switch op {
	case opNOP:
		return Nop{}, nil
	case opHLT:
		return Hlt{}, nil
	case opCLF:
		return Clf{}, nil
	case opDBG:
		return Dbg{}, nil
	case opRET:
		return Ret{}, nil
	case opPSHFLG:
		return PshFlg{}, nil
	case opPOPFLG:
		return PopFlg{}, nil
	case opINC:
		r, err := decodeRegisterByte(fetch)
		return Inc{Reg: r}, err
	case opDEC:
		r, err := decodeRegisterByte(fetch)
		return Dec{Reg: r}, err
	case opLEA:
		r, err := decodeRegisterByte(fetch)
		return Lea{Reg: r}, err
	case opSEROUT:
		r, err := decodeRegisterByte(fetch)
		return SerOut{Reg: r}, err
	case opSERIN:
		r, err := decodeRegisterByte(fetch)
		return SerIn{Reg: r}, err
	case opSERIO:
		v, err := fetchU32(fetch)
		return SerIO{Imm: v}, err
	case opINT:
		v, err := fetchU32(fetch)
		return Int{Imm: v}, err
	}

	if base, ok := movWidthForBase(mov32Base(op)); ok {
		return decodeMov(fetch, base, mov32Index(op))
	}
	if base, ok := movWidthForBase(mov8Base(op)); ok {
		return decodeMov(fetch, base, mov8Index(op))
	}
	if base, ok := movWidthForBase(mov16Base(op)); ok {
		return decodeMov(fetch, base, mov16Index(op))
	}

	switch {
	case op >= opPshBase && op < opPopBase:
		return decodePsh(fetch, int(op)-opPshBase)
	case op >= opPopBase && op < opPopBase+6:
		return decodePop(fetch, int(op)-opPopBase)
	case op >= opJmpBase && op < opJifBase:
		return decodeJumpLike(fetch, int(op)-opJmpBase, false)
	case op >= opJifBase && op < opCalBase:
		return decodeJif(fetch, int(op)-opJifBase)
	case op >= opCalBase && op < opRET:
		return decodeJumpLike(fetch, int(op)-opCalBase, true)
	case op >= opNotBase && op < opCmpBase:
		return decodeSimpleNot(fetch, int(op)-opNotBase)
	case op >= opCmpBase && op < opCmpBase+4:
		return decodeSimpleCmp(fetch, int(op)-opCmpBase)
	case op >= opALUBase:
		return decodeALU3(fetch, op)
	}

	return nil, ErrUnknownOpcode
}

// The three mov ranges are each 16 opcodes wide; these helpers return the
// range's base opcode if op falls within it, for use with movWidthForBase.
func mov32Base(op byte) int {
	if op >= opMov32Base && op < opMov32Base+16 {
		return opMov32Base
	}
	return -1
}
func mov8Base(op byte) int {
	if op >= opMov8Base && op < opMov8Base+16 {
		return opMov8Base
	}
	return -1
}
func mov16Base(op byte) int {
	if op >= opMov16Base && op < opMov16Base+16 {
		return opMov16Base
	}
	return -1
}
func mov32Index(op byte) int { return int(op) - opMov32Base }
func mov8Index(op byte) int  { return int(op) - opMov8Base }
func mov16Index(op byte) int { return int(op) - opMov16Base }

func decodeMov(fetch func() (byte, error), width Width, idx int) (Instruction, error) {
	if idx >= len(movModes) {
		return nil, ErrUnknownOpcode
	}
	pair := movModes[idx]
	ops, err := decodeOperands(fetch, []Mode{pair.A, pair.B})
	if err != nil {
		return nil, err
	}
	return Mov{Width: width, Src: ops[0], Dst: ops[1]}, nil
}

func decodeSimpleNot(fetch func() (byte, error), idx int) (Instruction, error) {
	if idx >= len(simpleModes) {
		return nil, ErrUnknownOpcode
	}
	pair := simpleModes[idx]
	ops, err := decodeOperands(fetch, []Mode{pair.A, pair.B})
	if err != nil {
		return nil, err
	}
	return Not{Src: ops[0], Dst: ops[1]}, nil
}

func decodeSimpleCmp(fetch func() (byte, error), idx int) (Instruction, error) {
	if idx >= len(simpleModes) {
		return nil, ErrUnknownOpcode
	}
	pair := simpleModes[idx]
	ops, err := decodeOperands(fetch, []Mode{pair.A, pair.B})
	if err != nil {
		return nil, err
	}
	return Cmp{Lhs: ops[0], Rhs: ops[1]}, nil
}

func decodePsh(fetch func() (byte, error), rel int) (Instruction, error) {
	wIdx := rel / len(pshModes)
	mIdx := rel % len(pshModes)
	if wIdx >= 3 {
		return nil, ErrUnknownOpcode
	}
	ops, err := decodeOperands(fetch, []Mode{pshModes[mIdx]})
	if err != nil {
		return nil, err
	}
	return Psh{Width: widthFromIndex(wIdx), Src: ops[0]}, nil
}

func decodePop(fetch func() (byte, error), rel int) (Instruction, error) {
	wIdx := rel / len(popModes)
	mIdx := rel % len(popModes)
	if wIdx >= 3 {
		return nil, ErrUnknownOpcode
	}
	ops, err := decodeOperands(fetch, []Mode{popModes[mIdx]})
	if err != nil {
		return nil, err
	}
	return Pop{Width: widthFromIndex(wIdx), Dst: ops[0]}, nil
}

func decodeJumpLike(fetch func() (byte, error), idx int, isCall bool) (Instruction, error) {
	if idx >= len(jmpTargetModes) {
		return nil, ErrUnknownOpcode
	}
	ops, err := decodeOperands(fetch, []Mode{jmpTargetModes[idx]})
	if err != nil {
		return nil, err
	}
	if isCall {
		return Cal{Target: ops[0]}, nil
	}
	return Jmp{Target: ops[0]}, nil
}

func decodeJif(fetch func() (byte, error), idx int) (Instruction, error) {
	if idx >= len(jmpTargetModes) {
		return nil, ErrUnknownOpcode
	}
	ops, err := decodeOperands(fetch, []Mode{jmpTargetModes[idx]})
	if err != nil {
		return nil, err
	}
	mask, err := fetch()
	if err != nil {
		return nil, err
	}
	return Jif{Target: ops[0], FlagMask: mask}, nil
}

func decodeALU3(fetch func() (byte, error), op byte) (Instruction, error) {
	rel := int(op) - opALUBase
	patIdx := rel / 0x10
	aluOp := rel % 0x10
	if patIdx >= len(aluPatterns) || aluOp >= numALUOps {
		return nil, ErrUnknownOpcode
	}
	pat := aluPatterns[patIdx]
	if pat.Stack {
		return ALU3{Op: ALUOp(aluOp), Stack: true}, nil
	}
	ops, err := decodeOperands(fetch, []Mode{pat.A, pat.B, pat.Dst})
	if err != nil {
		return nil, err
	}
	return ALU3{Op: ALUOp(aluOp), A: ops[0], B: ops[1], Dst: ops[2]}, nil
}
