package vm

import (
	"fmt"

	"rvm/internal/object"
)

// LoadRaw builds a VM directly from an on-disk executable image: a 32-byte
// header followed by one flat payload. There is no section table on disk
// (§6), so unlike New (which is handed an already-split object.Executable
// straight out of the linker) this loader never tries to recover a
// code/data boundary -- the whole payload becomes the addressable image,
// or the section-mode code array, exactly as the original loader's load()
// treats everything past the header as a single byte vector.
func LoadRaw(raw []byte, opts Options) (*VM, error) {
	if len(raw) < object.HeaderSize {
		return nil, fmt.Errorf("vm: input does not include a full %d-byte header", object.HeaderSize)
	}
	var header [object.HeaderSize]byte
	copy(header[:], raw[:object.HeaderSize])
	exe := &object.Executable{Header: header, Code: raw[object.HeaderSize:]}
	return New(exe, opts)
}
