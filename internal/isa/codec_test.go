package isa

import "testing"

func roundTrip(t *testing.T, ins Instruction) {
	t.Helper()
	var buf []byte
	if err := Encode(ins, func(b byte) { buf = append(buf, b) }); err != nil {
		t.Fatalf("encode(%#v): %v", ins, err)
	}
	pos := 0
	fetch := func() (byte, error) {
		if pos >= len(buf) {
			return 0, ErrShortInput
		}
		b := buf[pos]
		pos++
		return b, nil
	}
	got, err := Decode(fetch)
	if err != nil {
		t.Fatalf("decode(encode(%#v)): %v", ins, err)
	}
	if pos != len(buf) {
		t.Fatalf("decode consumed %d of %d bytes for %#v", pos, len(buf), ins)
	}
	if got != ins {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, ins)
	}
}

func TestRoundTripControl(t *testing.T) {
	cases := []Instruction{
		Nop{}, Hlt{}, Clf{}, Dbg{}, Ret{}, PshFlg{}, PopFlg{},
		Inc{Reg: RegA}, Dec{Reg: RegZ}, Lea{Reg: RegSP},
		SerOut{Reg: Reg1}, SerIn{Reg: Reg9},
		SerIO{Imm: 0xF0}, Int{Imm: 2},
	}
	for _, c := range cases {
		roundTrip(t, c)
	}
}

func TestRoundTripMov(t *testing.T) {
	for _, w := range []Width{Width8, Width16, Width32} {
		cases := []Instruction{
			Mov{Width: w, Src: RegOperand(RegA), Dst: RegOperand(RegB)},
			Mov{Width: w, Src: RegOperand(RegA), Dst: MemOperand(0x1000)},
			Mov{Width: w, Src: MemOperand(0x2000), Dst: RegOperand(RegC)},
			Mov{Width: w, Src: MemOperand(0x3000), Dst: MemOperand(0x4000)},
			Mov{Width: w, Src: ImmOperand(0x41), Dst: RegOperand(RegA)},
			Mov{Width: w, Src: ImmOperand(0x41), Dst: MemOperand(0x10)},
			Mov{Width: w, Src: RegAddrOperand(RegD), Dst: RegOperand(RegA)},
			Mov{Width: w, Src: MemAddrOperand(0x20), Dst: RegOperand(RegA)},
		}
		for _, c := range cases {
			roundTrip(t, c)
		}
	}
}

func TestRoundTripPshPop(t *testing.T) {
	for _, w := range []Width{Width8, Width16, Width32} {
		roundTrip(t, Psh{Width: w, Src: RegOperand(RegA)})
		roundTrip(t, Psh{Width: w, Src: MemOperand(0x10)})
		roundTrip(t, Psh{Width: w, Src: ImmOperand(0x1234)})
		roundTrip(t, Pop{Width: w, Dst: RegOperand(RegA)})
		roundTrip(t, Pop{Width: w, Dst: MemOperand(0x10)})
	}
}

func TestRoundTripJumps(t *testing.T) {
	roundTrip(t, Jmp{Target: RegOperand(RegA)})
	roundTrip(t, Jmp{Target: MemOperand(0x10)})
	roundTrip(t, Jmp{Target: ImmOperand(0x10)})
	roundTrip(t, Cal{Target: ImmOperand(0x20)})
	roundTrip(t, Jif{Target: ImmOperand(0x20), FlagMask: FlagA | FlagE})
}

func TestRoundTripALU(t *testing.T) {
	roundTrip(t, ALU3{Op: ALUAdd, Stack: true})
	roundTrip(t, Not{Src: RegOperand(RegA), Dst: RegOperand(RegB)})
	roundTrip(t, Cmp{Lhs: RegOperand(RegA), Rhs: MemOperand(0x10)})
	for _, op := range []ALUOp{ALUAdd, ALUSub, ALUMul, ALUDiv, ALUMod, ALUAnd, ALUOr, ALUXor, ALUShl, ALUShr, ALUNand, ALUNor} {
		roundTrip(t, ALU3{Op: op, A: RegOperand(RegA), B: RegOperand(RegB), Dst: RegOperand(RegC)})
		roundTrip(t, ALU3{Op: op, A: MemOperand(1), B: MemOperand(2), Dst: MemOperand(3)})
	}
}

func TestEncodeRejectsInvalidMovDestination(t *testing.T) {
	bad := Mov{Width: Width32, Src: RegOperand(RegA), Dst: ImmOperand(1)}
	if err := Encode(bad, func(byte) {}); err == nil {
		t.Fatal("expected error encoding immediate mov destination")
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	// 0x09 sits in the reserved gap of the control range (0x00-0x0F).
	fetch := func() (byte, error) { return 0x09, nil }
	if _, err := Decode(fetch); err != ErrUnknownOpcode {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
}
