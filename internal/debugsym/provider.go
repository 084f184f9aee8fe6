package debugsym

import (
	"fmt"
	"os"
	"sort"

	"rvm/internal/object"
)

// Provider answers "what source location produced the byte at this
// position" for runtime fault reporting, grounded on the original
// DebugInfoProvider.get_location nearest-preceding-symbol lookup.
type Provider struct {
	Symbols []Symbol
}

// Encode serialises the full sidecar file: magic, then every symbol in
// non-decreasing Pos order.
func Encode(symbols []Symbol) []byte {
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })

	buf := append([]byte{}, Magic[0], Magic[1])
	for _, s := range sorted {
		buf = append(buf, s.Encode()...)
	}
	return buf
}

func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("debugsym: %w", err)
	}
	return Parse(data, path)
}

func Parse(data []byte, name string) (*Provider, error) {
	if len(data) < 2 || data[0] != Magic[0] || data[1] != Magic[1] {
		return nil, fmt.Errorf("debugsym: %q is not a valid debug symbol file (did you pass the human-readable variant?)", name)
	}

	var symbols []Symbol
	off := 2
	for off < len(data) {
		sym, next, err := DecodeOne(data, off)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
		off = next
	}
	return &Provider{Symbols: symbols}, nil
}

// Location returns the nearest source location at or before pos, or the
// zero value if no symbols were loaded or pos precedes every symbol.
func (p *Provider) Location(pos uint32) (object.SourceLocation, bool) {
	if p == nil || len(p.Symbols) == 0 || pos < p.Symbols[0].Pos {
		return object.SourceLocation{}, false
	}
	for i := 0; i < len(p.Symbols)-1; i++ {
		cur, next := p.Symbols[i], p.Symbols[i+1]
		if cur.Pos <= pos && next.Pos > pos {
			return cur.Loc, true
		}
	}
	last := p.Symbols[len(p.Symbols)-1]
	return last.Loc, true
}
