// Package debugsym implements the debug-symbol sidecar format: a positional
// map from byte offset to (file, line, column), written by the assembler,
// merged by the linker, and consulted by the VM and disassembler when
// rendering fault locations.
package debugsym

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"rvm/internal/object"
)

// Symbol associates a byte position in the final image with a source
// location. Wire format: three big-endian uint32 fields (pos, column, line)
// followed by a NUL-terminated filename -- 12 fixed bytes plus the name.
type Symbol struct {
	Pos uint32
	Loc object.SourceLocation
}

const fixedFieldBytes = 12

// Magic prefixes every sidecar file; files lacking it are rejected outright.
var Magic = [2]byte{0xFF, 0xFF}

func (s Symbol) Encode() []byte {
	buf := make([]byte, 0, fixedFieldBytes+len(s.Loc.File)+1)
	var tmp [4]byte

	binary.BigEndian.PutUint32(tmp[:], s.Pos)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], uint32(s.Loc.Column))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], uint32(s.Loc.Line))
	buf = append(buf, tmp[:]...)

	buf = append(buf, []byte(s.Loc.File)...)
	buf = append(buf, 0)
	return buf
}

// DecodeOne reads one symbol record starting at offset off in data, and
// returns the offset just past it.
func DecodeOne(data []byte, off int) (Symbol, int, error) {
	if off+fixedFieldBytes > len(data) {
		return Symbol{}, 0, fmt.Errorf("debugsym: not enough bytes for a symbol record at offset %d", off)
	}
	pos := binary.BigEndian.Uint32(data[off:])
	col := binary.BigEndian.Uint32(data[off+4:])
	line := binary.BigEndian.Uint32(data[off+8:])

	rest := data[off+fixedFieldBytes:]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return Symbol{}, 0, fmt.Errorf("debugsym: filename was not NUL-terminated at offset %d", off)
	}
	file := string(rest[:nul])

	sym := Symbol{
		Pos: pos,
		Loc: object.SourceLocation{File: file, Line: int64(line), Column: int64(col)},
	}
	return sym, off + fixedFieldBytes + nul + 1, nil
}
