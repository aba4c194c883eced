package knx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GroupAddress represents a KNX group address in 3-level format.
//
// Format: Main/Middle/Sub
//   - Main:   0-31 (5 bits)
//   - Middle: 0-7  (3 bits)
//   - Sub:    0-255 (8 bits)
//
// GroupAddress is a comparable value type and can be used as a map key.
type GroupAddress struct {
	Main   uint8
	Middle uint8
	Sub    uint8
}

// Group address limits per KNX specification.
const (
	maxMain   = 31
	maxMiddle = 7
	maxSub    = 255

	// gaLevelCount is the number of levels in a 3-level group address.
	gaLevelCount = 3

	// Bit masks for extracting group address parts from uint16.
	gaMainMask   = 0x1F // 5 bits
	gaMiddleMask = 0x07 // 3 bits
	gaSubMask    = 0xFF // 8 bits
)

// ParseGroupAddress parses a 3-level group address string.
//
// Accepts formats:
//   - "1/2/3": ETS 3-level format
//   - "1.2.3": dotted form used in item files
//
// Mixing separators ("1/2.3") is rejected.
//
// Returns:
//   - GroupAddress: Parsed address
//   - error: ErrInvalidGroupAddress if parsing fails
func ParseGroupAddress(s string) (GroupAddress, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "."
	}

	parts := strings.Split(s, sep)
	if len(parts) != gaLevelCount {
		return GroupAddress{}, fmt.Errorf("%w: expected 3-level format (main/middle/sub), got %q", ErrInvalidGroupAddress, s)
	}

	main, err := parseLevel(parts[0], maxMain)
	if err != nil {
		return GroupAddress{}, fmt.Errorf("%w: main group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMain, parts[0])
	}

	middle, err := parseLevel(parts[1], maxMiddle)
	if err != nil {
		return GroupAddress{}, fmt.Errorf("%w: middle group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMiddle, parts[1])
	}

	sub, err := parseLevel(parts[2], maxSub)
	if err != nil {
		return GroupAddress{}, fmt.Errorf("%w: sub group must be 0-%d, got %q", ErrInvalidGroupAddress, maxSub, parts[2])
	}

	return GroupAddress{Main: main, Middle: middle, Sub: sub}, nil
}

// parseLevel parses one decimal address level and checks its upper bound.
// Signs and surrounding whitespace are not accepted.
func parseLevel(s string, limit uint64) (uint8, error) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	if v > limit {
		return 0, strconv.ErrRange
	}
	return uint8(v), nil //nolint:gosec // bounded by limit (<= 255)
}

// MustParseGroupAddress is like ParseGroupAddress but panics on error.
// Intended for tests and package-level constants.
func MustParseGroupAddress(s string) GroupAddress {
	ga, err := ParseGroupAddress(s)
	if err != nil {
		panic(err)
	}
	return ga
}

// String returns the group address in 3-level format.
//
// Example: "1/2/3"
func (ga GroupAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", ga.Main, ga.Middle, ga.Sub)
}

// ToUint16 converts the group address to a 16-bit integer.
//
// Layout: MMMM MSSS SSSS SSSS
//   - M = Main (5 bits)
//   - S = Middle (3 bits) + Sub (8 bits)
func (ga GroupAddress) ToUint16() uint16 {
	return uint16(ga.Main)<<11 | uint16(ga.Middle)<<8 | uint16(ga.Sub)
}

// GroupAddressFromUint16 creates a GroupAddress from a 16-bit integer.
func GroupAddressFromUint16(value uint16) GroupAddress {
	return GroupAddress{
		Main:   uint8((value >> 11) & gaMainMask),  //nolint:gosec // masked to 5 bits (0-31)
		Middle: uint8((value >> 8) & gaMiddleMask), //nolint:gosec // masked to 3 bits (0-7)
		Sub:    uint8(value & gaSubMask),           //nolint:gosec // masked to 8 bits (0-255)
	}
}

// Less orders group addresses by their 16-bit value.
func (ga GroupAddress) Less(other GroupAddress) bool {
	return ga.ToUint16() < other.ToUint16()
}

// URLEncode returns the group address as a URL path segment.
//
// Example: "1/2/3" → "1%2F2%2F3"
func (ga GroupAddress) URLEncode() string {
	return url.PathEscape(ga.String())
}

// ParseGroupAddressFromURL parses a URL-encoded group address.
// Dotted addresses ("1.2.3") need no escaping and are accepted as-is.
func ParseGroupAddressFromURL(encoded string) (GroupAddress, error) {
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return GroupAddress{}, fmt.Errorf("%w: URL decode failed: %w", ErrInvalidGroupAddress, err)
	}
	return ParseGroupAddress(decoded)
}

// IsValid returns true if the group address values are within valid ranges.
func (ga GroupAddress) IsValid() bool {
	return ga.Main <= maxMain && ga.Middle <= maxMiddle
}

// MarshalText implements encoding.TextMarshaler so addresses render as
// "1/2/3" in JSON and YAML output.
func (ga GroupAddress) MarshalText() ([]byte, error) {
	return []byte(ga.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ga *GroupAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupAddress(string(text))
	if err != nil {
		return err
	}
	*ga = parsed
	return nil
}
