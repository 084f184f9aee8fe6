package link_test

import (
	"testing"

	"rvm/internal/assemble"
	"rvm/internal/link"
	"rvm/internal/object"
)

func TestLinkSingleObjectResolvesEntry(t *testing.T) {
	format, err := assemble.Assemble(`
%section code
%entry main
main:
	movir 0x41, ra
	hlt
`, "single.s")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	exe, _, err := link.New([]*object.Format{format}).Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(exe.Code) == 0 {
		t.Fatal("expected non-empty linked code")
	}
	header, err := object.ParseHeader(exe.Header[:])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if header.EntryIP != 0 {
		t.Fatalf("expected entry at offset 0, got %d", header.EntryIP)
	}
}

func TestLinkResolvesCrossObjectLabels(t *testing.T) {
	producer, err := assemble.Assemble(`
%section code
%exp shared
shared:
	hlt
`, "producer.s")
	if err != nil {
		t.Fatalf("Assemble(producer): %v", err)
	}

	consumer, err := assemble.Assemble(`
%section code
%entry main
%ext shared
main:
	cali shared
	hlt
`, "consumer.s")
	if err != nil {
		t.Fatalf("Assemble(consumer): %v", err)
	}

	exe, _, err := link.New([]*object.Format{consumer, producer}).Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(exe.Code) == 0 {
		t.Fatal("expected non-empty linked code")
	}
}

func TestLinkRejectsUnresolvedExternal(t *testing.T) {
	consumer, err := assemble.Assemble(`
%section code
%ext nowhere
main:
	cali nowhere
	hlt
`, "orphan.s")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	_, _, err = link.New([]*object.Format{consumer}).Link()
	if err == nil {
		t.Fatal("expected an error for an external label with no exporting object")
	}
}

func TestLinkRejectsDuplicateExports(t *testing.T) {
	a, err := assemble.Assemble(`
%section code
%exp dup
dup:
	hlt
`, "a.s")
	if err != nil {
		t.Fatalf("Assemble(a): %v", err)
	}
	b, err := assemble.Assemble(`
%section code
%exp dup
dup:
	hlt
`, "b.s")
	if err != nil {
		t.Fatalf("Assemble(b): %v", err)
	}

	_, _, err = link.New([]*object.Format{a, b}).Link()
	if err == nil {
		t.Fatal("expected an error for two objects exporting the same label name")
	}
}

func TestLinkMergesAndSortsDebugSymbols(t *testing.T) {
	a, err := assemble.Assemble(`
%section code
%entry start
start:
	movir 1, ra
	hlt
`, "a.s")
	if err != nil {
		t.Fatalf("Assemble(a): %v", err)
	}
	b, err := assemble.Assemble(`
%section code
%exp tail
tail:
	hlt
`, "b.s")
	if err != nil {
		t.Fatalf("Assemble(b): %v", err)
	}

	_, symbols, err := link.New([]*object.Format{a, b}).Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	for i := 1; i < len(symbols); i++ {
		if symbols[i].Pos < symbols[i-1].Pos {
			t.Fatalf("expected merged debug symbols sorted by position, got %#v", symbols)
		}
	}
}
