package knx

import (
	"fmt"
	"strconv"
	"strings"
)

// DPT represents a KNX Datapoint Type identifier.
//
// Format: "major.minor" (e.g., "1.001", "9.001")
type DPT string

// Common DPT identifiers used in building automation.
const (
	// 1-bit types (DPT 1.xxx)
	DPTSwitch    DPT = "1.001" // 0=Off, 1=On
	DPTBool      DPT = "1.002" // 0=False, 1=True
	DPTEnable    DPT = "1.003" // 0=Disable, 1=Enable
	DPTStep      DPT = "1.007" // 0=Decrease, 1=Increase
	DPTUpDown    DPT = "1.008" // 0=Up, 1=Down
	DPTOpenClose DPT = "1.009" // 0=Open, 1=Close
	DPTStart     DPT = "1.010" // 0=Stop, 1=Start
	DPTTrigger   DPT = "1.017" // 1=Trigger

	// 4-bit types (DPT 3.xxx)
	DPTDimmingControl DPT = "3.007" // Direction + steps
	DPTBlindControl   DPT = "3.008" // Direction + steps

	// 1-byte unsigned types (DPT 5.xxx)
	DPTPercentage DPT = "5.001" // 0-100%
	DPTAngle      DPT = "5.003" // 0-360°
	DPTPercentU8  DPT = "5.004" // 0-255 raw

	// 2-byte float types (DPT 9.xxx)
	DPTTemperature DPT = "9.001" // -273 to 670760 °C
	DPTLux         DPT = "9.004" // 0 to 670760 lux
	DPTSpeed       DPT = "9.005" // m/s
	DPTHumidity    DPT = "9.007" // 0-100%
	DPTAirQuality  DPT = "9.008" // ppm

	// 14-byte string types (DPT 16.xxx)
	DPTStringASCII DPT = "16.000"
	DPTString88591 DPT = "16.001"
)

// dptMinorWidth is the zero-padded width of the minor part ("1.001").
const dptMinorWidth = 3

// ParseDPT parses and normalises a DPT identifier.
//
// Accepts "1.001", "1.1" and "9.1"; the minor part is zero-padded to three
// digits so equal types compare equal as strings.
//
// Returns:
//   - DPT: Normalised identifier
//   - error: ErrInvalidDPT if the identifier is malformed
func ParseDPT(s string) (DPT, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return "", fmt.Errorf("%w: expected major.minor, got %q", ErrInvalidDPT, s)
	}

	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil || major[0] == '+' {
		return "", fmt.Errorf("%w: major number must be numeric, got %q", ErrInvalidDPT, s)
	}
	mnr, err := strconv.ParseUint(minor, 10, 16)
	if err != nil || minor[0] == '+' {
		return "", fmt.Errorf("%w: minor number must be numeric, got %q", ErrInvalidDPT, s)
	}

	return DPT(fmt.Sprintf("%d.%0*d", maj, dptMinorWidth, mnr)), nil
}

// Main returns the major number of the DPT (the "1" in "1.001").
// Returns 0 for malformed identifiers.
func (d DPT) Main() int {
	major, _, _ := strings.Cut(string(d), ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}

// String returns the identifier.
func (d DPT) String() string {
	return string(d)
}
