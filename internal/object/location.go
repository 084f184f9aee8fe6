// Package object holds the relocatable-object data model shared by the
// assembler and linker: sections, labels, label requests, the binary
// header, and the final executable image.
package object

import "fmt"

// SourceLocation pins a diagnostic or label to a place in the source text.
type SourceLocation struct {
	File   string
	Line   int64
	Column int64
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
