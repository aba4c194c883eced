// Package knx holds the KNX value types shared by the item model: group
// addresses and datapoint type identifiers.
//
// It does no bus I/O. Item files refer to bus segments by group address and
// the model keys its reverse indexes on GroupAddress values, so the type is
// kept small and comparable.
//
// # Group Addresses
//
// The 3-level format Main/Middle/Sub is used. Item files may also write the
// dotted form:
//
//	addr, err := knx.ParseGroupAddress("1/2/3")
//	same, _ := knx.ParseGroupAddress("1.2.3")
//	fmt.Println(addr == same, addr) // true 1/2/3
//
// # Datapoint Types
//
//   - DPT 1.xxx: 1-bit (switch, bool, up/down, open/close)
//   - DPT 3.xxx: 4-bit dimming/blind control
//   - DPT 5.xxx: 1-byte unsigned (percentage)
//   - DPT 9.xxx: 2-byte float (temperature, lux)
//   - DPT 16.xxx: 14-byte string
package knx
