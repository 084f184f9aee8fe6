package object

// Label names a byte offset within a section. Equality is by name only,
// matching the linker's uniqueness invariant: two labels with the same name
// are the same label no matter where else they disagree.
type Label struct {
	Name string
	Loc  SourceLocation
	Pos  int64
}

func (l Label) Equal(other Label) bool {
	return l.Name == other.Name
}

// LabelRequest is a pending 4-byte fixup: the codec emitted zero bytes at
// Pos (relative to the start of its section) because Name's address was not
// yet known.
type LabelRequest struct {
	Name string
	Loc  SourceLocation
	Pos  uint32
}
