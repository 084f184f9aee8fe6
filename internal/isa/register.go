// Package isa defines the instruction set architecture shared by the
// assembler, linker, disassembler, and virtual machine: registers, operand
// modes, the instruction variants, and the byte-level codec between them.
package isa

import "fmt"

// Register names one of the sixteen 32-bit registers. The numeric value is
// also its 4-bit encoding inside a packed operand byte, so reordering these
// constants changes the wire format.
type Register uint8

const (
	RegA Register = iota
	RegB
	RegC
	RegD
	Reg1
	Reg2
	Reg3
	Reg4
	Reg5
	Reg6
	Reg7
	Reg8
	Reg9
	RegZ
	RegIP
	RegSP
)

const NumRegisters = 16

var registerNames = [NumRegisters]string{
	RegA: "a", RegB: "b", RegC: "c", RegD: "d",
	Reg1: "1", Reg2: "2", Reg3: "3", Reg4: "4", Reg5: "5",
	Reg6: "6", Reg7: "7", Reg8: "8", Reg9: "9",
	RegZ: "z", RegIP: "ip", RegSP: "sp",
}

var registerByName map[string]Register

func init() {
	registerByName = make(map[string]Register, NumRegisters)
	for r, name := range registerNames {
		registerByName[name] = Register(r)
	}
}

func (r Register) String() string {
	if int(r) >= NumRegisters {
		return fmt.Sprintf("reg(%d)", uint8(r))
	}
	return registerNames[r]
}

// ParseRegister looks up a register by its assembly-text name (without the
// leading 'r' in mnemonics like "movrr" -- callers pass just "a", "1", "ip").
func ParseRegister(name string) (Register, bool) {
	r, ok := registerByName[name]
	return r, ok
}

// Valid reports whether r is one of the sixteen defined registers, i.e. its
// 4-bit encoding is in range. Values built from untrusted wire bytes must be
// checked with this before use.
func (r Register) Valid() bool {
	return uint8(r) < NumRegisters
}
