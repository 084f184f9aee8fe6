package disasm_test

import (
	"strings"
	"testing"

	"rvm/internal/assemble"
	"rvm/internal/disasm"
	"rvm/internal/link"
	"rvm/internal/object"
)

func assembleAndLink(t *testing.T, source string) *object.Executable {
	t.Helper()
	format, err := assemble.Assemble(source, "t.s")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	exe, _, err := link.New([]*object.Format{format}).Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	return exe
}

func TestDisassembleMinimal(t *testing.T) {
	exe := assembleAndLink(t, `
%section code
%entry main
main:
	movir 0x41, ra
	hlt
`)
	d, err := disasm.FromExecutableBytes(exe.Bytes())
	if err != nil {
		t.Fatalf("FromExecutableBytes: %v", err)
	}
	listing := d.Disassemble()
	if !strings.Contains(listing, "[0x000000]") {
		t.Fatalf("expected a line at offset 0, got: %s", listing)
	}
}

func TestDisassembleSynthesisesJumpTargetLabel(t *testing.T) {
	exe := assembleAndLink(t, `
%section code
%entry main
main:
	jmpi loop
loop:
	hlt
`)
	d, err := disasm.FromExecutableBytes(exe.Bytes())
	if err != nil {
		t.Fatalf("FromExecutableBytes: %v", err)
	}
	listing := d.Disassemble()
	if !strings.Contains(listing, "_label_0x") {
		t.Fatalf("expected a synthesised label line, got: %s", listing)
	}
}

func TestDisassembleRecoversFromBadOpcode(t *testing.T) {
	// The 32-byte header is skipped; the code region starts with 0xFF, an
	// ALU-complex byte whose low nibble names no operation, so Disassemble
	// produces an inline error line for it rather than panicking and then
	// decodes the remaining zero bytes as nop.
	raw := make([]byte, object.HeaderSize+4)
	raw[object.HeaderSize] = 0xFF
	d, err := disasm.FromExecutableBytes(raw)
	if err != nil {
		t.Fatalf("FromExecutableBytes: %v", err)
	}
	listing := d.Disassemble()
	if !strings.Contains(listing, "Error:") {
		t.Fatalf("expected an inline error line, got: %s", listing)
	}
}

func TestFromExecutableBytesRejectsShortInput(t *testing.T) {
	_, err := disasm.FromExecutableBytes([]byte{0x01, 0x02})
	if err == nil {
		t.Fatal("expected an error for input shorter than the header")
	}
}
