package vm

// InterruptID names the kind of interrupt delivered to the handler table,
// grounded on the original VM's InterruptID enum (None/UserModeViolation/
// Syscall, extended here to the general numeric kind an INT instruction can
// name -- the original only defines the first three, the rest are free for
// handler-defined use).
type InterruptID uint8

const (
	InterruptNone              InterruptID = 0x00
	InterruptUserModeViolation InterruptID = 0x01
	InterruptSyscall           InterruptID = 0x02
	InterruptTimer             InterruptID = 0x03
)

// pendingInterrupt is the VM's single interrupt slot: the snapshot taken at
// delivery time plus the kind that triggered it. There is no nesting --
// delivering a second interrupt while one is pending silently overwrites
// this slot, per the open question in §9: implementations must document
// single-level behaviour rather than extend to a stack, and this one does.
type pendingInterrupt struct {
	id    InterruptID
	state snapshot
}

// deliver snapshots the current CPU state, drops privilege to kernel mode,
// and jumps to the configured handler address, per §4.5.1's four-step
// delivery sequence.
func (vm *VM) deliver(id InterruptID) {
	vm.interrupt = &pendingInterrupt{id: id, state: vm.snapshot()}
	vm.userMode = false
	vm.subMode = false
	vm.regs.ip = vm.interruptHandler
}

// resolveInterrupt restores every snapshotted field and discards the slot.
func (vm *VM) resolveInterrupt() {
	if vm.interrupt == nil {
		return
	}
	vm.restore(vm.interrupt.state)
	vm.interrupt = nil
}

// removeInterrupt restores registers and flags from the snapshot but keeps
// the handler's own IP and SP (rather than the pre-interrupt ones), then
// forces kernel mode. Used by a handler that wants to resume a *different*
// location than where the interrupt fired, e.g. after servicing a syscall
// and advancing past it manually.
func (vm *VM) removeInterrupt() {
	if vm.interrupt == nil {
		return
	}
	ip, sp := vm.regs.ip, vm.regs.sp
	vm.restore(vm.interrupt.state)
	vm.regs.ip = ip
	vm.regs.sp = sp
	vm.userMode = false
	vm.subMode = false
	vm.interrupt = nil
}

// resolveInterruptNoSP restores everything except SP, so a handler that
// pushed values for the resumed code can hand them off without losing them
// to the pre-interrupt stack pointer.
func (vm *VM) resolveInterruptNoSP() {
	if vm.interrupt == nil {
		return
	}
	vm.restoreNoSP(vm.interrupt.state)
	vm.interrupt = nil
}
