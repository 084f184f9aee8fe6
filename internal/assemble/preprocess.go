package assemble

import (
	"fmt"
	"regexp"
	"strings"

	"rvm/internal/object"
)

// rawLine is one source line after comment stripping but before macro
// expansion or directive dispatch, tagged with its original line number
// so diagnostics still point at the text the user wrote.
type rawLine struct {
	Text string
	Line int64
}

var commentPattern = regexp.MustCompile(`(//.*$|;.*$)`)

// preprocess strips comments/blank lines, expands %def macros, and
// evaluates %ifdef/%ifndef/%endif, returning the lines that survive for
// statement parsing. This corresponds to the distilled spec's "director
// layer" (§4.2) -- out of scope as an independent module, but its effect
// on output has to be reproduced somewhere for the toolchain to run.
func preprocess(source, filename string) ([]rawLine, error) {
	macros := map[string]string{}
	var condStack []bool
	active := func() bool {
		for _, c := range condStack {
			if !c {
				return false
			}
		}
		return true
	}

	var out []rawLine
	for i, line := range strings.Split(source, "\n") {
		lineNo := int64(i + 1)
		line = commentPattern.ReplaceAllString(line, "")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "%ifdef") || strings.HasPrefix(trimmed, "%ifndef") {
			fields := strings.Fields(trimmed)
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s:%d: %%ifdef/%%ifndef expects exactly one macro name", filename, lineNo)
			}
			_, defined := macros[fields[1]]
			want := strings.HasPrefix(trimmed, "%ifdef")
			condStack = append(condStack, defined == want)
			continue
		}
		if trimmed == "%endif" {
			if len(condStack) == 0 {
				return nil, fmt.Errorf("%s:%d: %%endif without matching %%ifdef/%%ifndef", filename, lineNo)
			}
			condStack = condStack[:len(condStack)-1]
			continue
		}
		if !active() {
			continue
		}

		if strings.HasPrefix(trimmed, "%def ") || trimmed == "%def" {
			fields := strings.Fields(trimmed)
			if len(fields) < 2 {
				return nil, fmt.Errorf("%s:%d: %%def expects a macro name", filename, lineNo)
			}
			value := ""
			if len(fields) > 2 {
				value = fields[2]
			}
			macros[fields[1]] = value
			continue
		}
		if trimmed == "%line" {
			out = append(out, rawLine{Text: fmt.Sprintf("%d", lineNo), Line: lineNo})
			continue
		}
		if trimmed == "%line_str" {
			out = append(out, rawLine{Text: fmt.Sprintf("%q", fmt.Sprintf("%s:%d", filename, lineNo)), Line: lineNo})
			continue
		}

		if trimmed == "" {
			continue
		}

		for name, value := range macros {
			trimmed = replaceToken(trimmed, name, value)
		}

		out = append(out, rawLine{Text: trimmed, Line: lineNo})
	}

	if len(condStack) != 0 {
		return nil, fmt.Errorf("%s: unterminated %%ifdef/%%ifndef (missing %%endif)", filename)
	}

	return out, nil
}

// replaceToken substitutes whole-word occurrences of name with value,
// leaving identifiers that merely contain name as a substring untouched.
func replaceToken(line, name, value string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return re.ReplaceAllString(line, value)
}

func loc(filename string, line int64) object.SourceLocation {
	return object.SourceLocation{File: filename, Line: line, Column: 1}
}
