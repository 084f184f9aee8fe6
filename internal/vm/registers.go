package vm

import "rvm/internal/isa"

// registerFile holds the thirteen general-purpose registers; Z, IP, and SP
// are special-cased in Get/Set rather than stored here, the same split the
// teacher's register file makes between pc/sp and the general array.
type registerFile struct {
	general [numGeneral]uint32
	ip      uint32
	sp      uint32
}

const numGeneral = isa.NumRegisters - 3 // A,B,C,D,1..9 -- Z/IP/SP live outside the array

// slot maps a general-purpose register to its index in the general array.
// Reg A..Reg9 are contiguous starting at zero in isa's encoding, so this is
// just the identity, kept as a named step for readability at call sites.
func slot(r isa.Register) int { return int(r) }

func (f *registerFile) Get(r isa.Register) uint32 {
	switch r {
	case isa.RegZ:
		return 0
	case isa.RegIP:
		return f.ip
	case isa.RegSP:
		return f.sp
	default:
		return f.general[slot(r)]
	}
}

func (f *registerFile) Set(r isa.Register, v uint32) {
	switch r {
	case isa.RegZ:
		// discarded
	case isa.RegIP:
		f.ip = v
	case isa.RegSP:
		f.sp = v
	default:
		f.general[slot(r)] = v
	}
}

// snapshot captures every register plus flags and mode bits, used to save
// and restore CPU state across an interrupt.
type snapshot struct {
	general  [numGeneral]uint32
	ip       uint32
	sp       uint32
	flags    uint8
	userMode bool
	subMode  bool
}

func (vm *VM) snapshot() snapshot {
	return snapshot{
		general:  vm.regs.general,
		ip:       vm.regs.ip,
		sp:       vm.regs.sp,
		flags:    vm.flags,
		userMode: vm.userMode,
		subMode:  vm.subMode,
	}
}

func (vm *VM) restore(s snapshot) {
	vm.regs.general = s.general
	vm.regs.ip = s.ip
	vm.regs.sp = s.sp
	vm.flags = s.flags
	vm.userMode = s.userMode
	vm.subMode = s.subMode
}

// restoreNoSP is the ResolveInterruptNoRSP variant: everything except the
// stack pointer is restored, so kernel-pushed values stay reachable.
func (vm *VM) restoreNoSP(s snapshot) {
	sp := vm.regs.sp
	vm.restore(s)
	vm.regs.sp = sp
}
