package object

// Format is a single object's complete output from the assembler: its
// Code and Data sections, the external (imported) labels it references,
// and, for at most one object per link, a HeaderConstructor.
type Format struct {
	Code     *Section
	Data     *Section
	External []Label
	Header   *HeaderConstructor
}

func NewFormat() *Format {
	return &Format{
		Code: NewSection(KindCode),
		Data: NewSection(KindData),
	}
}

// Section returns the object's section for kind. Both sections exist from
// NewFormat on; KindNone is never valid here and yields nil.
func (f *Format) Section(kind Kind) *Section {
	switch kind {
	case KindCode:
		return f.Code
	case KindData:
		return f.Data
	default:
		return nil
	}
}

// Len is the combined byte length of both sections.
func (f *Format) Len() int { return f.Code.Len() + f.Data.Len() }

func (f *Format) IsEmpty() bool { return f.Len() == 0 }

// MarkExternal records that name is referenced by this object but defined
// elsewhere (an %ext directive); the linker resolves it against every
// other object's exported labels and fills in its Pos.
func (f *Format) MarkExternal(name string, loc SourceLocation) {
	f.External = append(f.External, Label{Name: name, Loc: loc})
}
