package assemble_test

import (
	"testing"

	"rvm/internal/assemble"
)

func TestAssembleMinimal(t *testing.T) {
	format, err := assemble.Assemble(`
%section code
%entry main
main:
	movir 0x41, ra
	hlt
`, "minimal.s")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if format.Code.Len() == 0 {
		t.Fatal("expected non-empty code section")
	}
	if format.Header == nil {
		t.Fatal("expected %entry to produce a header constructor")
	}
}

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	_, err := assemble.Assemble(`
%section code
	frobnicate ra
`, "bad.s")
	if err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestAssembleRejectsStatementOutsideSection(t *testing.T) {
	_, err := assemble.Assemble(`movir 1, ra`, "nosection.s")
	if err == nil {
		t.Fatal("expected an error for a statement with no active %section")
	}
}

func TestExportAndExternalRoundTrip(t *testing.T) {
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
%ext shared
main:
	cali shared
	hlt
`, "consumer.s")
	if err != nil {
		t.Fatalf("Assemble(consumer): %v", err)
	}

	if len(producer.Code.Labels) == 0 {
		t.Fatal("expected the producer to record the exported label")
	}
	if len(consumer.External) != 1 || consumer.External[0].Name != "shared" {
		t.Fatalf("expected one external reference named shared, got %#v", consumer.External)
	}
}

func TestPreprocessedLinesStripsCommentsAndBlank(t *testing.T) {
	lines, err := assemble.PreprocessedLines(`
; a full-line comment
main: // trailing comment
	hlt

`, "t.s")
	if err != nil {
		t.Fatalf("PreprocessedLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 surviving lines, got %d: %#v", len(lines), lines)
	}
}

func TestTokensSplitsMnemonicAndOperands(t *testing.T) {
	toks := assemble.Tokens("movir 0x41, ra")
	if len(toks) != 3 || toks[0] != "movir" || toks[1] != "0x41" || toks[2] != "ra" {
		t.Fatalf("unexpected tokens: %#v", toks)
	}
}
