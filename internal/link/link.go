// Package link implements the linker: it merges the relocatable objects
// produced by internal/assemble into one loadable executable, resolving
// every label request and rebasing every debug symbol along the way.
//
// Grounded on original_source/src/link.rs's Linker::link -- concatenate,
// rebase, collect exports, resolve imports, patch, finalize -- widened
// from that source's 2-byte fields to this ISA's 4-byte addresses.
package link

import (
	"sort"

	"rvm/internal/debugsym"
	"rvm/internal/diag"
	"rvm/internal/object"
)

// Linker merges a set of objects produced by one or more assembler runs.
type Linker struct {
	Formats []*object.Format
}

func New(formats []*object.Format) *Linker {
	return &Linker{Formats: formats}
}

type placedObject struct {
	format     *object.Format
	codeBase   int
	dataBase   int
}

// Link runs the full merge/rebase/resolve/patch algorithm described in
// §4.3 of the specification and returns the finished executable plus its
// merged, position-sorted debug symbols.
func (l *Linker) Link() (*object.Executable, []debugsym.Symbol, error) {
	var header *object.HeaderConstructor
	sawHeader := false

	placed := make([]placedObject, 0, len(l.Formats))
	codeOff, dataOff := 0, 0

	for _, f := range l.Formats {
		if f.Header != nil {
			if sawHeader {
				return nil, nil, diag.Basic("FATAL: multiple binary headers defined across linked objects")
			}
			sawHeader = true
			header = f.Header
		}
		placed = append(placed, placedObject{format: f, codeBase: codeOff, dataBase: dataOff})
		codeOff += f.Code.Len()
		dataOff += f.Data.Len()
	}

	if !sawHeader {
		diag.Notice("no binary header defined.")
	}

	// Rebase each object's own labels by its section's base offset, and
	// collect every exported label into global, name-disjoint indices.
	var codeExports, dataExports []object.Label
	for _, p := range placed {
		rebase(p.format.Code.Labels, p.codeBase)
		exported, err := collectExports(p.format.Code)
		if err != nil {
			return nil, nil, err
		}
		codeExports = append(codeExports, exported...)

		rebase(p.format.Data.Labels, p.dataBase)
		exported, err = collectExports(p.format.Data)
		if err != nil {
			return nil, nil, err
		}
		dataExports = append(dataExports, exported...)
	}
	if err := checkDisjoint(codeExports, dataExports); err != nil {
		return nil, nil, err
	}

	// Resolve every object's external (%ext) declarations against the
	// global export indices; this is purely a validation + lookup pass.
	for _, p := range placed {
		for i := range p.format.External {
			ext := &p.format.External[i]
			label, ok := findByName(codeExports, ext.Name)
			if !ok {
				label, ok = findByName(dataExports, ext.Name)
			}
			if !ok {
				return nil, nil, diag.Located(ext.Loc, "there is no exposed label with the name '%s'", ext.Name)
			}
			ext.Pos = label.Pos
		}
	}

	// Concatenate code and data into the final two buffers.
	codeSection := make([]byte, 0, codeOff)
	dataSection := make([]byte, 0, dataOff)
	for _, p := range placed {
		codeSection = append(codeSection, p.format.Code.Data...)
	}
	for _, p := range placed {
		dataSection = append(dataSection, p.format.Data.Data...)
	}
	codeLen := len(codeSection)

	// Patch every request in every section.
	for _, p := range placed {
		if err := patchRequests(codeSection, p.format.Code, p.codeBase, p.format, codeLen, codeExports, dataExports, false); err != nil {
			return nil, nil, err
		}
		if err := patchRequests(dataSection, p.format.Data, p.dataBase, p.format, codeLen, codeExports, dataExports, true); err != nil {
			return nil, nil, err
		}
	}

	// Merge and rebase debug symbols from every section of every object.
	// object.DebugSymbol and debugsym.Symbol share the same underlying
	// struct shape (internal/object can't import internal/debugsym, since
	// the latter already imports the former for SourceLocation), so the
	// conversion here is just a type rename, not a field-by-field copy.
	var symbols []debugsym.Symbol
	for _, p := range placed {
		for _, s := range p.format.Code.Symbols {
			s.Pos += uint32(p.codeBase)
			symbols = append(symbols, debugsym.Symbol(s))
		}
		for _, s := range p.format.Data.Symbols {
			s.Pos += uint32(p.dataBase) + uint32(codeLen)
			symbols = append(symbols, debugsym.Symbol(s))
		}
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Pos < symbols[j].Pos })

	var headerBytes [object.HeaderSize]byte
	if header != nil {
		entry, err := resolveEntry(header, placed, codeLen, codeExports, dataExports, header.EntryLoc)
		if err != nil {
			return nil, nil, err
		}
		headerBytes = header.Finalize(entry)
	}

	return &object.Executable{Header: headerBytes, Code: codeSection, Data: dataSection}, symbols, nil
}

func rebase(labels []object.Label, base int) {
	for i := range labels {
		labels[i].Pos += int64(base)
	}
}

// collectExports returns the subset of s.Labels named by s.ExposedLabels,
// already rebased; a name with no matching local label is a fatal error.
func collectExports(s *object.Section) ([]object.Label, error) {
	var out []object.Label
	for _, exp := range s.ExposedLabels {
		label, ok := findByName(s.Labels, exp.Name)
		if !ok {
			return nil, diag.Located(exp.Loc, "there is no label '%s' that can be exposed", exp.Name)
		}
		out = append(out, label)
	}
	return out, nil
}

func checkDisjoint(code, data []object.Label) error {
	seen := make(map[string]bool, len(code)+len(data))
	for _, l := range code {
		if seen[l.Name] {
			return diag.Located(l.Loc, "label '%s' is exported by more than one object", l.Name)
		}
		seen[l.Name] = true
	}
	for _, l := range data {
		if seen[l.Name] {
			return diag.Located(l.Loc, "label '%s' is exported by more than one object", l.Name)
		}
		seen[l.Name] = true
	}
	return nil
}

func findByName(labels []object.Label, name string) (object.Label, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l, true
		}
	}
	return object.Label{}, false
}

// resolveLabel implements the request-resolution order from §4.3 step 4:
// local labels of the owning section first, then the sibling section of
// the same object, then the global export index (exports of the
// requester's own kind first, then the other kind). Whenever the winning
// label lives in a data section its position is shifted by codeLen, per
// invariant (iii) -- data labels are always reported in shifted
// (post-code) terms; code label positions are never shifted.
func resolveLabel(name string, own *object.Section, sibling *object.Section, isData bool, codeLen int, codeExports, dataExports []object.Label) (int64, bool) {
	if l, ok := findByName(own.Labels, name); ok {
		if isData {
			return l.Pos + int64(codeLen), true
		}
		return l.Pos, true
	}
	if sibling != nil {
		if l, ok := findByName(sibling.Labels, name); ok {
			if isData {
				// sibling is code; code positions are absolute already.
				return l.Pos, true
			}
			// own is code, sibling is data: shift by final code length.
			return l.Pos + int64(codeLen), true
		}
	}
	if isData {
		if l, ok := findByName(dataExports, name); ok {
			return l.Pos + int64(codeLen), true
		}
		if l, ok := findByName(codeExports, name); ok {
			return l.Pos, true
		}
	} else {
		if l, ok := findByName(codeExports, name); ok {
			return l.Pos, true
		}
		if l, ok := findByName(dataExports, name); ok {
			return l.Pos + int64(codeLen), true
		}
	}
	return 0, false
}

func patchRequests(buf []byte, sec *object.Section, base int, f *object.Format, codeLen int, codeExports, dataExports []object.Label, isData bool) error {
	var sibling *object.Section
	if isData {
		sibling = f.Code
	} else {
		sibling = f.Data
	}
	for _, req := range sec.RequestedLabels {
		pos, ok := resolveLabel(req.Name, sec, sibling, isData, codeLen, codeExports, dataExports)
		if !ok {
			return diag.Located(req.Loc, "no label named '%s' could be resolved", req.Name)
		}
		adr := base + int(req.Pos)
		putU32BE(buf[adr:adr+4], uint32(pos))
	}
	return nil
}

func resolveEntry(h *object.HeaderConstructor, placed []placedObject, codeLen int, codeExports, dataExports []object.Label, loc object.SourceLocation) (uint32, error) {
	if h.EntryLabel == "" {
		return h.EntryAddr, nil
	}
	for _, p := range placed {
		if l, ok := findByName(p.format.Code.Labels, h.EntryLabel); ok {
			return uint32(l.Pos), nil
		}
		if l, ok := findByName(p.format.Data.Labels, h.EntryLabel); ok {
			return uint32(l.Pos) + uint32(codeLen), nil
		}
	}
	if l, ok := findByName(codeExports, h.EntryLabel); ok {
		return uint32(l.Pos), nil
	}
	if l, ok := findByName(dataExports, h.EntryLabel); ok {
		return uint32(l.Pos) + uint32(codeLen), nil
	}
	return 0, diag.Located(loc, "no label named '%s' could be resolved for the program entry point", h.EntryLabel)
}

func putU32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
