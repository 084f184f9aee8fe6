package isa

import "fmt"

// Encode writes the wire representation of ins by repeatedly calling push.
// It returns an error without partial-writing guarantees beyond "some
// prefix of the correct bytes may already have been pushed" -- callers that
// need atomicity should buffer push into a scratch slice first.
func Encode(ins Instruction, push func(byte)) error {
	switch v := ins.(type) {
	case Nop:
		push(opNOP)
	case Hlt:
		push(opHLT)
	case Clf:
		push(opCLF)
	case Dbg:
		push(opDBG)
	case Ret:
		push(opRET)
	case PshFlg:
		push(opPSHFLG)
	case PopFlg:
		push(opPOPFLG)
	case Inc:
		if !v.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
		push(opINC)
		encodeRegisterByte(push, v.Reg)
	case Dec:
		if !v.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
		push(opDEC)
		encodeRegisterByte(push, v.Reg)
	case Lea:
		if !v.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
		push(opLEA)
		encodeRegisterByte(push, v.Reg)
	case SerOut:
		if !v.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
		push(opSEROUT)
		encodeRegisterByte(push, v.Reg)
	case SerIn:
		if !v.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
		push(opSERIN)
		encodeRegisterByte(push, v.Reg)
	case SerIO:
		push(opSERIO)
		pushU32(push, v.Imm)
	case Int:
		push(opINT)
		pushU32(push, v.Imm)
	case Mov:
		return encodeMov(push, v)
	case Psh:
		return encodePsh(push, v)
	case Pop:
		return encodePop(push, v)
	case Jmp:
		return encodeJumpLike(push, opJmpBase, v.Target)
	case Cal:
		return encodeJumpLike(push, opCalBase, v.Target)
	case Jif:
		idx, ok := indexOfMode(jmpTargetModes[:], v.Target.Mode)
		if !ok {
			return ErrInvalidMode
		}
		push(byte(opJifBase + idx))
		encodeOperands(push, v.Target)
		push(v.FlagMask)
	case Not:
		return encodeSimple(push, opNotBase, v.Src, v.Dst)
	case Cmp:
		return encodeSimple(push, opCmpBase, v.Lhs, v.Rhs)
	case ALU3:
		return encodeALU3(push, v)
	default:
		return fmt.Errorf("isa: encode: unsupported instruction type %T", ins)
	}
	return nil
}

func checkRegLikeValid(ops ...Operand) error {
	for _, o := range ops {
		if o.Mode.IsRegisterLike() && !o.Reg.Valid() {
			return ErrRegisterOutOfRange
		}
	}
	return nil
}

func encodeMov(push func(byte), m Mov) error {
	base, ok := movBaseForWidth(m.Width)
	if !ok {
		return ErrInvalidMode
	}
	idx, ok := movModeIndex(m.Src.Mode, m.Dst.Mode)
	if !ok {
		return ErrInvalidMode
	}
	if err := checkRegLikeValid(m.Src, m.Dst); err != nil {
		return err
	}
	push(byte(base + idx))
	encodeOperands(push, m.Src, m.Dst)
	return nil
}

func encodeSimple(push func(byte), base int, a, b Operand) error {
	idx, ok := simpleModeIndex(a.Mode, b.Mode)
	if !ok {
		return ErrInvalidMode
	}
	if err := checkRegLikeValid(a, b); err != nil {
		return err
	}
	push(byte(base + idx))
	encodeOperands(push, a, b)
	return nil
}

func encodePsh(push func(byte), p Psh) error {
	wIdx, ok := widthIndex(p.Width)
	if !ok {
		return ErrInvalidMode
	}
	mIdx, ok := indexOfMode(pshModes[:], p.Src.Mode)
	if !ok {
		return ErrInvalidMode
	}
	if err := checkRegLikeValid(p.Src); err != nil {
		return err
	}
	push(byte(opPshBase + wIdx*len(pshModes) + mIdx))
	encodeOperands(push, p.Src)
	return nil
}

func encodePop(push func(byte), p Pop) error {
	wIdx, ok := widthIndex(p.Width)
	if !ok {
		return ErrInvalidMode
	}
	mIdx, ok := indexOfMode(popModes[:], p.Dst.Mode)
	if !ok {
		return ErrInvalidMode
	}
	if err := checkRegLikeValid(p.Dst); err != nil {
		return err
	}
	push(byte(opPopBase + wIdx*len(popModes) + mIdx))
	encodeOperands(push, p.Dst)
	return nil
}

func encodeJumpLike(push func(byte), base int, target Operand) error {
	idx, ok := indexOfMode(jmpTargetModes[:], target.Mode)
	if !ok {
		return ErrInvalidMode
	}
	if err := checkRegLikeValid(target); err != nil {
		return err
	}
	push(byte(base + idx))
	encodeOperands(push, target)
	return nil
}

func encodeALU3(push func(byte), a ALU3) error {
	if int(a.Op) >= numALUOps {
		return ErrInvalidMode
	}
	patIdx, ok := aluPatternIndex(a.Stack, a.A.Mode, a.B.Mode, a.Dst.Mode)
	if !ok {
		return ErrInvalidMode
	}
	push(byte(opALUBase + patIdx*0x10 + int(a.Op)))
	if !a.Stack {
		if err := checkRegLikeValid(a.A, a.B, a.Dst); err != nil {
			return err
		}
		encodeOperands(push, a.A, a.B, a.Dst)
	}
	return nil
}
