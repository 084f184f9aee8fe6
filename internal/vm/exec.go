package vm

import "rvm/internal/isa"

// narrow masks v down to the low width bytes, used for both reading an
// operand at less than 32 bits and truncating a value before it is
// written to a narrower destination.
func narrow(v uint32, width int) uint32 {
	switch width {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	default:
		return v
	}
}

// readOperand resolves op to a width-byte value, applying memory
// remapping to every address computed along the way -- once for a direct
// Memory/RegisterAddress access, twice for MemoryAddress's double
// dereference (§4.5's "dereferencing memory-address twice for that mode").
func (vm *VM) readOperand(op isa.Operand, width int) (uint32, error) {
	switch op.Mode {
	case isa.ModeRegister:
		return narrow(vm.regs.Get(op.Reg), width), nil
	case isa.ModeImmediate:
		return narrow(op.Value, width), nil
	case isa.ModeMemory:
		addr := vm.remap.resolve(op.Value)
		return vm.mem.ReadWidth(addr, width), nil
	case isa.ModeRegisterAddress:
		addr := vm.remap.resolve(vm.regs.Get(op.Reg))
		return vm.mem.ReadWidth(addr, width), nil
	case isa.ModeMemoryAddress:
		ptrAddr := vm.remap.resolve(op.Value)
		ptr := vm.mem.ReadWidth(ptrAddr, 4)
		addr := vm.remap.resolve(ptr)
		return vm.mem.ReadWidth(addr, width), nil
	default:
		return 0, vm.fatalf("invalid operand mode %v", op.Mode)
	}
}

func (vm *VM) writeOperand(op isa.Operand, value uint32, width int) error {
	value = narrow(value, width)
	switch op.Mode {
	case isa.ModeRegister:
		vm.regs.Set(op.Reg, value)
		return nil
	case isa.ModeMemory:
		addr := vm.remap.resolve(op.Value)
		vm.mem.WriteWidth(addr, value, width)
		return nil
	case isa.ModeRegisterAddress:
		addr := vm.remap.resolve(vm.regs.Get(op.Reg))
		vm.mem.WriteWidth(addr, value, width)
		return nil
	case isa.ModeMemoryAddress:
		ptrAddr := vm.remap.resolve(op.Value)
		ptr := vm.mem.ReadWidth(ptrAddr, 4)
		addr := vm.remap.resolve(ptr)
		vm.mem.WriteWidth(addr, value, width)
		return nil
	default:
		return vm.fatalf("cannot write to operand mode %v", op.Mode)
	}
}

// jumpTarget resolves a jmp/jif/cal target operand, then applies memory
// remapping once more to the resulting address -- the extra step the spec
// calls out separately from the per-mode dereference remapping above.
func (vm *VM) jumpTarget(op isa.Operand) (uint32, error) {
	v, err := vm.readOperand(op, 4)
	if err != nil {
		return 0, err
	}
	return vm.remap.resolve(v), nil
}

func (vm *VM) execute(ins isa.Instruction) error {
	switch v := ins.(type) {

	case isa.Nop:
		return nil

	case isa.Hlt:
		if vm.validateKernelMode(true) {
			vm.running = false
		}
		return nil

	case isa.Clf:
		vm.flags = 0
		return nil

	case isa.Dbg:
		vm.out.Write([]byte(vm.RegisterDump() + "\n"))
		return nil

	case isa.Ret:
		ip, err := vm.pop32()
		if err != nil {
			return err
		}
		vm.regs.ip = ip
		return nil

	case isa.PshFlg:
		return vm.push(uint32(vm.flags), 1)

	case isa.PopFlg:
		f, err := vm.pop(1)
		if err != nil {
			return err
		}
		vm.flags = byte(f)
		return nil

	case isa.Inc:
		vm.regs.Set(v.Reg, vm.regs.Get(v.Reg)+1)
		return nil

	case isa.Dec:
		vm.regs.Set(v.Reg, vm.regs.Get(v.Reg)-1)
		return nil

	case isa.Lea:
		vm.regs.Set(v.Reg, vm.remap.resolve(vm.regs.Get(v.Reg)))
		return nil

	case isa.SerOut:
		return vm.serOut(v.Reg)

	case isa.SerIn:
		return vm.serIn(v.Reg)

	case isa.SerIO:
		return vm.dispatchSerIO(v.Imm)

	case isa.Int:
		id := InterruptID(v.Imm)
		if id == InterruptNone {
			return vm.fatalf("cannot send interrupt id 0 (None)")
		}
		vm.deliver(id)
		return nil

	case isa.Mov:
		width := v.Width.Bytes()
		val, err := vm.readOperand(v.Src, width)
		if err != nil {
			return err
		}
		return vm.writeOperand(v.Dst, val, width)

	case isa.Psh:
		width := v.Width.Bytes()
		val, err := vm.readOperand(v.Src, width)
		if err != nil {
			return err
		}
		return vm.push(val, width)

	case isa.Pop:
		width := v.Width.Bytes()
		val, err := vm.pop(width)
		if err != nil {
			return err
		}
		return vm.writeOperand(v.Dst, val, width)

	case isa.Jmp:
		target, err := vm.jumpTarget(v.Target)
		if err != nil {
			return err
		}
		vm.regs.ip = target
		return nil

	case isa.Cal:
		target, err := vm.jumpTarget(v.Target)
		if err != nil {
			return err
		}
		if err := vm.push32(vm.regs.ip); err != nil {
			return err
		}
		vm.regs.ip = target
		return nil

	case isa.Jif:
		if vm.flags&v.FlagMask == 0 {
			return nil
		}
		target, err := vm.jumpTarget(v.Target)
		if err != nil {
			return err
		}
		vm.regs.ip = target
		return nil

	case isa.Not:
		left, err := vm.readOperand(v.Src, 4)
		if err != nil {
			return err
		}
		return vm.writeOperand(v.Dst, ^left, 4)

	case isa.Cmp:
		left, err := vm.readOperand(v.Lhs, 4)
		if err != nil {
			return err
		}
		right, err := vm.readOperand(v.Rhs, 4)
		if err != nil {
			return err
		}
		vm.flags &^= isa.FlagE | isa.FlagA | isa.FlagB
		switch {
		case left == right:
			vm.flags |= isa.FlagE
		case left > right:
			vm.flags |= isa.FlagA
		default:
			vm.flags |= isa.FlagB
		}
		return nil

	case isa.ALU3:
		return vm.executeALU(v)

	default:
		return vm.fatalf("unhandled instruction %T", ins)
	}
}

func (vm *VM) executeALU(ins isa.ALU3) error {
	var l, r uint32
	var err error
	if ins.Stack {
		if r, err = vm.pop32(); err != nil {
			return err
		}
		if l, err = vm.pop32(); err != nil {
			return err
		}
	} else {
		if l, err = vm.readOperand(ins.A, 4); err != nil {
			return err
		}
		if r, err = vm.readOperand(ins.B, 4); err != nil {
			return err
		}
	}

	var result uint32
	switch ins.Op {
	case isa.ALUAdd:
		result = l + r
	case isa.ALUSub:
		result = l - r
	case isa.ALUMul:
		result = l * r
	case isa.ALUDiv:
		if r == 0 {
			result = 0
		} else {
			result = l / r
		}
	case isa.ALUMod:
		if r == 0 {
			result = 0
		} else {
			result = l % r
		}
	case isa.ALUAnd:
		result = l & r
	case isa.ALUOr:
		result = l | r
	case isa.ALUXor:
		result = l ^ r
	case isa.ALUShl:
		result = l << (r & 0x1F)
	case isa.ALUShr:
		result = l >> (r & 0x1F)
	case isa.ALUNand:
		result = ^(l & r)
	case isa.ALUNor:
		result = ^(l | r)
	default:
		return vm.fatalf("unknown alu operation %v", ins.Op)
	}

	if ins.Stack {
		return vm.push32(result)
	}
	return vm.writeOperand(ins.Dst, result, 4)
}
