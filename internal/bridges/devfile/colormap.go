package devfile

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultColorName is used when colors-channel is empty or absent.
const defaultColorName = "white"

// ParseMode records which resolution branch ParseColorChannels took.
type ParseMode int

const (
	// ModeDefault means the input was empty and the white:0 default applied.
	ModeDefault ParseMode = iota

	// ModeIndexed means every entry carried an index, used verbatim.
	ModeIndexed

	// ModeSequential means no entry carried an index.
	ModeSequential

	// ModeMixedFallback means indexed and bare entries were mixed; all
	// declared indices were discarded in favour of sequential assignment.
	ModeMixedFallback
)

// String returns the mode name used in logs.
func (m ParseMode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeIndexed:
		return "indexed"
	case ModeSequential:
		return "sequential"
	case ModeMixedFallback:
		return "mixed_fallback"
	default:
		return fmt.Sprintf("ParseMode(%d)", int(m))
	}
}

// ColorChannelMap maps a lower-cased colour name to its channel offset within
// an element's block.
type ColorChannelMap map[string]int

// Lookup normalises name (trim, lower-case) and returns its offset.
func (m ColorChannelMap) Lookup(name string) (int, bool) {
	offset, ok := m[normalizeColor(name)]
	return offset, ok
}

// ColorChannelResult is the outcome of parsing a colors-channel string.
type ColorChannelResult struct {
	Map  ColorChannelMap
	Mode ParseMode

	// Warning is non-nil when the mixed fallback applied. It wraps
	// ErrAmbiguousColorChannels.
	Warning error
}

type colorEntry struct {
	name    string
	index   int
	indexed bool
}

// ParseColorChannels parses the colors-channel mini-language.
//
// Entries are separated by ';' and are either "name" or "name:index". If all
// entries are indexed the declared indices are used (a later duplicate name
// overwrites an earlier one). If none are, names get 0..N-1 in declaration
// order. A mix falls back to sequential assignment and reports a warning.
// Empty input yields {"white": 0}.
//
// The function has no side effects.
func ParseColorChannels(raw string) ColorChannelResult {
	entries := splitColorEntries(raw)
	if len(entries) == 0 {
		return ColorChannelResult{
			Map:  ColorChannelMap{defaultColorName: 0},
			Mode: ModeDefault,
		}
	}

	indexed := 0
	for _, e := range entries {
		if e.indexed {
			indexed++
		}
	}

	result := ColorChannelResult{Map: make(ColorChannelMap, len(entries))}

	switch indexed {
	case len(entries):
		result.Mode = ModeIndexed
		for _, e := range entries {
			result.Map[e.name] = e.index
		}
		return result
	case 0:
		result.Mode = ModeSequential
	default:
		result.Mode = ModeMixedFallback
		result.Warning = fmt.Errorf("%w: %d of %d entries indexed in %q, using declaration order",
			ErrAmbiguousColorChannels, indexed, len(entries), raw)
	}

	for i, e := range entries {
		result.Map[e.name] = i
	}
	return result
}

// splitColorEntries tokenises raw into entries, skipping blanks.
func splitColorEntries(raw string) []colorEntry {
	var entries []colorEntry
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, idx, hasColon := strings.Cut(part, ":")
		e := colorEntry{name: normalizeColor(name)}
		if hasColon {
			if n, err := strconv.Atoi(strings.TrimSpace(idx)); err == nil && n >= 0 {
				e.index = n
				e.indexed = true
			}
		}
		if e.name == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func normalizeColor(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
