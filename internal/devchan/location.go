package devchan

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Location schemes.
const (
	SchemeFile   = "file"
	SchemeSerial = "serial"
)

// Location is a parsed device location.
type Location struct {
	Scheme string
	Path   string

	// Baud is the serial baud rate, 0 when not given.
	Baud int
}

// ParseLocation parses a device location string.
//
// Supported forms:
//   - "/dev/x" → file
//   - "file:///dev/x" → file
//   - "serial:///dev/ttyUSB0?baud=9600" → serial
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	// serial://COM3 puts the port name in Host.
	path := u.Host + u.Path
	if path == "" {
		return Location{}, fmt.Errorf("%w: %q has no path", ErrInvalidLocation, raw)
	}

	switch u.Scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Path: path}, nil
	case SchemeSerial:
		loc := Location{Scheme: SchemeSerial, Path: path}
		if b := u.Query().Get("baud"); b != "" {
			baud, err := strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Location{}, fmt.Errorf("%w: baud %q must be a positive integer", ErrInvalidLocation, b)
			}
			loc.Baud = baud
		}
		return loc, nil
	default:
		return Location{}, fmt.Errorf("%w: %q (use file or serial)", ErrUnsupportedScheme, u.Scheme)
	}
}

// String formats the location back into its canonical form.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeSerial:
		if l.Baud > 0 {
			return fmt.Sprintf("serial://%s?baud=%d", l.Path, l.Baud)
		}
		return "serial://" + l.Path
	default:
		return l.Path
	}
}
