// Package disasm implements the disassembler (§4.4): it walks the code
// region of an executable, decoding one instruction at a time and
// rendering a textual listing with synthesised labels for any
// memory/immediate operand (outside the ALU-complex family) whose value
// lies inside the code region.
//
// Grounded on original_source/src/dasm/disasm.rs's DASM struct --
// get_label_for's synthesised-label map, ir_to_line's per-instruction
// rendering, and disassemble()'s best-effort continuation after a
// decode error.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"rvm/internal/isa"
	"rvm/internal/object"
)

// Disassembler renders one executable's code region as text.
type Disassembler struct {
	code   []byte
	pos    int
	labels map[uint32]string
}

func New(code []byte) *Disassembler {
	return &Disassembler{code: code, labels: map[uint32]string{}}
}

// FromExecutableBytes skips the 32-byte header and disassembles the code
// region that follows, matching the original tool's behaviour of reading
// the header bytes but not decoding them as instructions.
func FromExecutableBytes(raw []byte) (*Disassembler, error) {
	if len(raw) < object.HeaderSize {
		return nil, fmt.Errorf("disasm: input does not include a full %d-byte header", object.HeaderSize)
	}
	return New(raw[object.HeaderSize:]), nil
}

func (d *Disassembler) labelFor(adr uint32) string {
	if name, ok := d.labels[adr]; ok {
		return name
	}
	name := fmt.Sprintf("_label_0x%x", adr)
	d.labels[adr] = name
	return name
}

type line struct {
	Offset uint32
	Text   string
}

// Disassemble produces the full textual listing: one line per decoded
// instruction (or inline "Error: ..." line on a bad opcode), with a
// "labelname:" line inserted immediately before the instruction at each
// synthesised label's address.
func (d *Disassembler) Disassemble() string {
	var lines []line

	for d.pos < len(d.code) {
		offset := uint32(d.pos)
		start := d.pos
		ins, err := isa.Decode(d.fetch)
		if err != nil {
			end := d.pos
			if end == start {
				end = start + 1
				d.pos = end
			}
			raw := d.code[start:min(end, len(d.code))]
			lines = append(lines, line{Offset: offset, Text: fmt.Sprintf("%s => Error: %v", hexBytes(raw), err)})
			continue
		}
		lines = append(lines, line{Offset: offset, Text: d.render(ins, offset)})
	}

	var b strings.Builder
	labelOffsets := make([]uint32, 0, len(d.labels))
	for adr := range d.labels {
		labelOffsets = append(labelOffsets, adr)
	}
	sort.Slice(labelOffsets, func(i, j int) bool { return labelOffsets[i] < labelOffsets[j] })

	li := 0
	for _, ln := range lines {
		for li < len(labelOffsets) && labelOffsets[li] <= ln.Offset {
			b.WriteString(d.labels[labelOffsets[li]])
			b.WriteString(":\n")
			li++
		}
		b.WriteString(fmt.Sprintf("[0x%06x] %s\n", ln.Offset, ln.Text))
	}
	for ; li < len(labelOffsets); li++ {
		b.WriteString(d.labels[labelOffsets[li]])
		b.WriteString(":\n")
	}

	return b.String()
}

func (d *Disassembler) fetch() (byte, error) {
	if d.pos >= len(d.code) {
		return 0, isa.ErrShortInput
	}
	b := d.code[d.pos]
	d.pos++
	return b, nil
}

func hexBytes(bs []byte) string {
	var b strings.Builder
	for _, c := range bs {
		fmt.Fprintf(&b, "0x%02x ", c)
	}
	return strings.TrimSpace(b.String())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
