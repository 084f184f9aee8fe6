package object

import "encoding/binary"

const (
	HeaderSize       = 32
	HeaderVersion0   = uint16(0x0000)
	minStackSize     = 1024
	minStackPosition = 0x1000
)

// HeaderConstructor accumulates the `%header` / `%entry` directives while
// assembling; Finalize produces the 32-byte serialized prologue. Only one
// object per link may carry a HeaderConstructor -- enforced by the linker,
// not here.
type HeaderConstructor struct {
	Version      uint16
	StackPos     uint16
	StackSize    uint16
	Flags        uint8
	EntryLabel   string // if non-empty, entry address is resolved by name
	EntryAddr    uint32 // used when EntryLabel == ""
	EntryLoc     SourceLocation
	sawStackPos  bool
	sawStackSize bool
}

func NewHeaderConstructor() *HeaderConstructor {
	return &HeaderConstructor{Version: HeaderVersion0}
}

func (h *HeaderConstructor) SetStackPos(pos uint16) {
	h.StackPos, h.sawStackPos = pos, true
}

func (h *HeaderConstructor) SetStackSize(size uint16) {
	h.StackSize, h.sawStackSize = size, true
}

func (h *HeaderConstructor) SetEntryLabel(name string, loc SourceLocation) {
	h.EntryLabel, h.EntryLoc = name, loc
}
func (h *HeaderConstructor) SetEntryAddr(addr uint32)  { h.EntryAddr = addr }
func (h *HeaderConstructor) SetFlags(f uint8)          { h.Flags = f }

// Finalize applies the minimum-size bumps and serializes the 32-byte
// header. entryAddr is the already-resolved 32-bit entry point (resolution
// of EntryLabel, if any, happens in the linker).
func (h *HeaderConstructor) Finalize(entryAddr uint32) [HeaderSize]byte {
	stackSize := h.StackSize
	if !h.sawStackSize || stackSize < minStackSize {
		stackSize = minStackSize
	}
	stackPos := h.StackPos
	if !h.sawStackPos || stackPos < minStackPosition {
		stackPos = minStackPosition
	}

	var out [HeaderSize]byte
	binary.BigEndian.PutUint16(out[0:2], h.Version)
	binary.BigEndian.PutUint16(out[2:4], uint16(entryAddr))
	binary.BigEndian.PutUint16(out[4:6], stackPos)
	binary.BigEndian.PutUint16(out[6:8], stackSize)
	out[8] = h.Flags
	// bytes 9-31 stay zero.
	return out
}

// ParsedHeader is the deserialized form of the 32-byte prologue, consumed
// by the VM at load time.
type ParsedHeader struct {
	Version   uint16
	EntryIP   uint32 // zero-extended from the 16-bit on-disk field
	StackPos  uint32
	StackSize uint32
	Flags     uint8
}

func ParseHeader(data []byte) (ParsedHeader, error) {
	if len(data) < HeaderSize {
		return ParsedHeader{}, errHeaderTooShort
	}
	return ParsedHeader{
		Version:   binary.BigEndian.Uint16(data[0:2]),
		EntryIP:   uint32(binary.BigEndian.Uint16(data[2:4])), // zero-extension, resolves the entry-point open question
		StackPos:  uint32(binary.BigEndian.Uint16(data[4:6])),
		StackSize: uint32(binary.BigEndian.Uint16(data[6:8])),
		Flags:     data[8],
	}, nil
}

var errHeaderTooShort = headerError("object: binary does not include a full 32-byte header")

type headerError string

func (e headerError) Error() string { return string(e) }
