package object

// Executable is the loadable image the linker produces: a fixed 32-byte
// header followed by the merged code bytes and the merged data bytes. The
// loader treats everything past the header as one addressable image --
// there is no section table on disk.
type Executable struct {
	Header [HeaderSize]byte
	Code   []byte
	Data   []byte
}

// Bytes concatenates header, code, and data into the final on-disk image.
func (e *Executable) Bytes() []byte {
	out := make([]byte, 0, HeaderSize+len(e.Code)+len(e.Data))
	out = append(out, e.Header[:]...)
	out = append(out, e.Code...)
	out = append(out, e.Data...)
	return out
}
