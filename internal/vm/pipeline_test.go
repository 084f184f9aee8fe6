package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"rvm/internal/assemble"
	"rvm/internal/isa"
	"rvm/internal/link"
	"rvm/internal/object"
	"rvm/internal/vm"
)

// build assembles, links, and loads one source file, returning the VM
// ready to Run. Grounded on the pipeline the cmd/* binaries drive in
// sequence: Assemble -> Link -> vm.New.
func build(t *testing.T, source string, out *bytes.Buffer) *vm.VM {
	t.Helper()
	format, err := assemble.Assemble(source, "test.s")
	require.NoError(t, err)

	exe, _, err := link.New([]*object.Format{format}).Link()
	require.NoError(t, err)

	machine, err := vm.New(exe, vm.Options{Stdout: out})
	require.NoError(t, err)
	return machine
}

func TestMinimalHello(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 0x41, ra
	__out ra
	hlt
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, "A", out.String())
}

func TestUnsignedCompare(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 5, ra
	movir 3, rb
	cmprr ra, rb
	hlt
`, &out)

	require.NoError(t, machine.Run())
	require.True(t, machine.FlagSet(isa.FlagA))
	require.False(t, machine.FlagSet(isa.FlagE))
	require.False(t, machine.FlagSet(isa.FlagB))
}

func TestStackRoundTrip(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	pshi 0x1234
	popr ra
	hlt
`, &out)

	spBefore := machine.Reg(isa.RegSP)
	require.NoError(t, machine.Run())
	require.Equal(t, uint32(0x1234), machine.Reg(isa.RegA))
	require.Equal(t, spBefore, machine.Reg(isa.RegSP))
}

func TestCallReturn(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	cali foo
	hlt
foo:
	movir 0x7, r1
	ret
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, uint32(7), machine.Reg(isa.Reg1))
}

func TestDataLabel(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir msg, ra
	hlt
%section data
msg: db "Hi",0
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, machine.CodeLength(), machine.Reg(isa.RegA))
}

// TestInterruptReentry exercises the concrete interrupt scenario (§8):
// select the interrupt-control device, point its handler at a label that
// immediately calls ResolveInterrupt, then INT 2. Every register and flag
// set right before INT should read back unchanged once the handler
// resolves and execution falls through to the final hlt.
func TestInterruptReentry(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 0x01, ra
	__io 0xF0
	movir handler, ra
	__io 0x02
	movir 0x11, ra
	movir 0x22, rb
	int 2
	hlt
handler:
	__io 0x03
	hlt
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, uint32(0x11), machine.Reg(isa.RegA))
	require.Equal(t, uint32(0x22), machine.Reg(isa.RegB))
}

// TestTimerInterrupt exercises the one asynchronous peripheral: arm a short
// timer, then busy-loop until the handler it points at fires; the handler
// removes the interrupt (keeping its own IP), sets a register, and stops
// with a clean hlt.
func TestTimerInterrupt(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 0x01, ra
	__io 0xF0
	movir handler, ra
	__io 0x02
	movir 0x03, ra
	__io 0xF0
	movir 500, ra
	__io 0x00
loop:
	jmpi loop
handler:
	movir 0x01, ra
	__io 0xF0
	__io 0x04
	movir 0x99, r1
	hlt
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, uint32(0x99), machine.Reg(isa.Reg1))
}

// TestNestedInterruptOverwritesPendingSlot exercises the single-slot
// nested-interrupt behaviour called out in §9: delivering a second
// interrupt while the first is still pending must silently overwrite the
// first snapshot rather than stack it. handler1 retargets the handler
// address to handler2 and fires a second INT before ever resolving the
// first; ResolveInterrupt in handler2 must then restore handler1's
// snapshot (rb=0x22, resuming right after handler1's own INT), never
// main's (rb=0x11, resuming after main's INT) -- if the first snapshot
// had survived instead of being overwritten, r1 would end up 0xdead.
func TestNestedInterruptOverwritesPendingSlot(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 0x01, ra
	__io 0xF0
	movir handler1, ra
	__io 0x02
	movir 0x11, rb
	int 2
	movir 0xdead, r1
	hlt
handler1:
	movir 0x22, rb
	movir handler2, ra
	__io 0x02
	int 2
	movir 0xbeef, r1
	hlt
handler2:
	__io 0x03
	hlt
`, &out)

	require.NoError(t, machine.Run())
	require.Equal(t, uint32(0xbeef), machine.Reg(isa.Reg1))
	require.Equal(t, uint32(0x22), machine.Reg(isa.RegB))
}

func TestPrivilegeViolationTrapsToHandler(t *testing.T) {
	var out bytes.Buffer
	machine := build(t, `
%section code
%entry main
main:
	movir 0x01, ra
	__io 0xF0
	movir handler, ra
	__io 0x02
	movir 0x01, ra
	__io 0x01
	hlt
handler:
	hlt
`, &out)

	require.NoError(t, machine.Run())
}
