package object

// RecordPatch appends a label request for bytes already written (as zero
// placeholders) at pos by the caller's own encoding step. Unlike
// RequestLabel, it does not touch Data -- the assembler uses this when the
// zero bytes were emitted as part of a larger codec.Encode call and only
// the bookkeeping remains to be done.
func (s *Section) RecordPatch(name string, loc SourceLocation, pos uint32) {
	s.RequestedLabels = append(s.RequestedLabels, LabelRequest{Name: name, Loc: loc, Pos: pos})
}
