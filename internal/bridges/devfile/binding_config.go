package devfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Declared attribute names read from a binding tag.
const (
	AttrID                 = "id"
	AttrLocation           = "location"
	AttrChannelsPerElement = "channels-per-element"
	AttrColorsChannel      = "colors-channel"
	AttrColorPropertyNames = "color-property-names"
	AttrAttributeName      = "attribute-name"
)

// Defaults applied when optional attributes are absent.
const (
	defaultChannelsPerElement = 1
	defaultColorProperty      = "color"
	defaultTextAttribute      = "text"
	messageAttribute          = "message"
)

// Declaration holds the attributes declared on a binding tag.
type Declaration map[string]string

// Get returns the trimmed value of an attribute, or "" if absent.
func (d Declaration) Get(name string) string {
	return strings.TrimSpace(d[name])
}

// BindingConfig is the validated configuration of one binding.
// It is built once by ParseBindingConfig and never modified afterwards.
type BindingConfig struct {
	ID       string
	Location string

	// ChannelsPerElement is the size of each element's channel block.
	ChannelsPerElement int

	// Colors maps colour names to offsets inside a block.
	Colors     ColorChannelMap
	ColorsMode ParseMode

	// ColorProperties is the set of monitored style property names.
	ColorProperties map[string]struct{}

	// AttributeName is the monitored attribute for text bindings.
	AttributeName string
}

// MonitorsProperty reports whether a style property is one of the monitored
// colour properties. Comparison is case-insensitive.
func (c BindingConfig) MonitorsProperty(name string) bool {
	_, ok := c.ColorProperties[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ParseBindingConfig validates a declaration for the given binding kind.
//
// A missing id or location is fatal and wraps ErrConfiguration. Recoverable
// problems (a malformed channels-per-element, an ambiguous colors-channel) are
// returned as warnings and the defaults are kept.
func ParseBindingConfig(kind Kind, decl Declaration) (BindingConfig, []error, error) {
	cfg := BindingConfig{
		ID:                 decl.Get(AttrID),
		Location:           decl.Get(AttrLocation),
		ChannelsPerElement: defaultChannelsPerElement,
	}

	var missing []error
	if cfg.ID == "" {
		missing = append(missing, ErrMissingID)
	}
	if cfg.Location == "" {
		missing = append(missing, ErrMissingLocation)
	}
	if len(missing) > 0 {
		return cfg, nil, fmt.Errorf("%w: %s binding %q: %w",
			ErrConfiguration, kind, cfg.ID, joinErrors(missing))
	}

	var warnings []error

	switch kind {
	case KindOutputColor:
		if raw := decl.Get(AttrChannelsPerElement); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				warnings = append(warnings, fmt.Errorf("%w: got %q, keeping %d",
					ErrInvalidChannelsPerElement, raw, cfg.ChannelsPerElement))
			} else {
				cfg.ChannelsPerElement = n
			}
		}

		colors := ParseColorChannels(decl[AttrColorsChannel])
		cfg.Colors = colors.Map
		cfg.ColorsMode = colors.Mode
		if colors.Warning != nil {
			warnings = append(warnings, colors.Warning)
		}

		cfg.ColorProperties = parsePropertyNames(decl[AttrColorPropertyNames])

	case KindOutputText:
		cfg.AttributeName = decl.Get(AttrAttributeName)
		if cfg.AttributeName == "" {
			cfg.AttributeName = defaultTextAttribute
		}

	case KindOutputMessage:
		cfg.AttributeName = messageAttribute
	}

	return cfg, warnings, nil
}

// parsePropertyNames splits a ';' or ',' separated list of property names.
func parsePropertyNames(raw string) map[string]struct{} {
	names := make(map[string]struct{})
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' })
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			names[f] = struct{}{}
		}
	}
	if len(names) == 0 {
		names[defaultColorProperty] = struct{}{}
	}
	return names
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return fmt.Errorf("%w (%s)", errs[0], strings.Join(parts[1:], "; "))
}
