package object

// DebugSymbol associates a byte position within a section with the source
// location that produced it. Defined here rather than in internal/debugsym
// (which itself needs SourceLocation from this package) so that internal/object
// never has to import back the package that imports it.
type DebugSymbol struct {
	Pos uint32
	Loc SourceLocation
}

// Kind tags a section as code or data.
type Kind uint8

const (
	KindNone Kind = iota
	KindCode
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindData:
		return "data"
	default:
		return "none"
	}
}

// Section is a contiguous byte region owned exclusively by its object until
// link time, along with the labels it defines, the subset it exports, and
// the unresolved requests pointing into its own bytes.
type Section struct {
	Kind            Kind
	Data            []byte
	Labels          []Label
	ExposedLabels   []Label
	RequestedLabels []LabelRequest
	Symbols         []DebugSymbol
}

func NewSection(kind Kind) *Section {
	return &Section{Kind: kind}
}

func (s *Section) Len() int      { return len(s.Data) }
func (s *Section) IsEmpty() bool { return len(s.Data) == 0 }

// DefineLabel records a label at the section's current write position.
func (s *Section) DefineLabel(name string, loc SourceLocation, exported bool) Label {
	l := Label{Name: name, Loc: loc, Pos: int64(len(s.Data))}
	s.Labels = append(s.Labels, l)
	if exported {
		s.ExposedLabels = append(s.ExposedLabels, l)
	}
	return l
}

// RequestLabel records a pending fixup at the section's current write
// position and emits four zero placeholder bytes.
func (s *Section) RequestLabel(name string, loc SourceLocation) {
	s.RequestedLabels = append(s.RequestedLabels, LabelRequest{
		Name: name,
		Loc:  loc,
		Pos:  uint32(len(s.Data)),
	})
	s.Data = append(s.Data, 0, 0, 0, 0)
}

func (s *Section) WriteByte(b byte) {
	s.Data = append(s.Data, b)
}

func (s *Section) WriteBytes(b []byte) {
	s.Data = append(s.Data, b...)
}

func (s *Section) RecordSymbol(sym DebugSymbol) {
	s.Symbols = append(s.Symbols, sym)
}
