package mht

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
)

// Kind is the closed set of item kinds an item file can declare.
type Kind string

// Item kinds.
const (
	KindSwitch      Kind = "switch"      // on/off switch, optionally dimmable
	KindMeasurement Kind = "measurement" // numeric measurement
	KindContact     Kind = "contact"     // open/closed sensor
	KindShade       Kind = "shade"       // roller shutter / blind position
	KindString      Kind = "string"      // free text or enumerated string
	KindGroup       Kind = "group"       // container for other items
)

// kindAliases maps alternative spellings accepted in item files.
var kindAliases = map[string]Kind{
	"rollershutter": KindShade,
	"rollerblind":   KindShade,
}

// Kinds returns every item kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindSwitch, KindMeasurement, KindContact, KindShade, KindString, KindGroup}
}

// ParseKind parses a kind tag (case-insensitive).
func ParseKind(s string) (Kind, error) {
	tag := strings.ToLower(s)
	if k, ok := kindAliases[tag]; ok {
		return k, nil
	}
	k := Kind(tag)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds(), k)
}

// DefaultType returns the TypeTag inferred for a binding that does not name
// one. Group items have none.
func (k Kind) DefaultType() (TypeTag, bool) {
	rule, ok := kindTypes[k]
	if !ok || len(rule) == 0 {
		return "", false
	}
	return rule[0], true
}

// Supports reports whether a binding of type t is allowed on items of kind k.
func (k Kind) Supports(t TypeTag) bool {
	return slices.Contains(kindTypes[k], t)
}

// kindTypes lists the allowed TypeTags per kind; the first entry is the
// default used when a binding omits its type.
var kindTypes = map[Kind][]TypeTag{
	KindSwitch:      {TypeBool, TypePercent, TypeDimmer},
	KindMeasurement: {TypeDecimal, TypePercent},
	KindContact:     {TypeOpenClosed, TypeBool},
	KindShade:       {TypeUpDown, TypePercent},
	KindString:      {TypeString},
	KindGroup:       nil,
}

// TypeTag discriminates the value format carried by a datapoint.
type TypeTag string

// Value formats.
const (
	TypeBool       TypeTag = "bool"
	TypePercent    TypeTag = "percent"
	TypeDimmer     TypeTag = "dimmer"
	TypeUpDown     TypeTag = "updown"
	TypeOpenClosed TypeTag = "openclosed"
	TypeDecimal    TypeTag = "decimal"
	TypeString     TypeTag = "string"
)

// typeDPTs is the default KNX datapoint type of each TypeTag.
var typeDPTs = map[TypeTag]knx.DPT{
	TypeBool:       knx.DPTSwitch,
	TypeUpDown:     knx.DPTUpDown,
	TypeOpenClosed: knx.DPTOpenClose,
	TypeDimmer:     knx.DPTDimmingControl,
	TypePercent:    knx.DPTPercentage,
	TypeDecimal:    knx.DPTTemperature,
	TypeString:     knx.DPTStringASCII,
}

// dptTypes maps exact DPT ids that do not follow their main group.
var dptTypes = map[knx.DPT]TypeTag{
	knx.DPTUpDown:         TypeUpDown,
	knx.DPTOpenClose:      TypeOpenClosed,
	knx.DPTDimmingControl: TypeDimmer,
	knx.DPTBlindControl:   TypeUpDown,
	knx.DPTPercentage:     TypePercent,
}

// dptMainTypes maps a DPT main group to its TypeTag.
var dptMainTypes = map[int]TypeTag{
	1:  TypeBool,
	9:  TypeDecimal,
	14: TypeDecimal,
	16: TypeString,
}

// DPT returns the default KNX datapoint type for t.
func (t TypeTag) DPT() knx.DPT {
	return typeDPTs[t]
}

// IsValid reports whether t is a known TypeTag.
func (t TypeTag) IsValid() bool {
	_, ok := typeDPTs[t]
	return ok
}

// TypeFromDPT maps a KNX datapoint type to the TypeTag that carries it.
func TypeFromDPT(d knx.DPT) (TypeTag, bool) {
	if t, ok := dptTypes[d]; ok {
		return t, true
	}
	t, ok := dptMainTypes[d.Main()]
	return t, ok
}

// parseTypeToken resolves the type position of a binding. It accepts a
// TypeTag name or a DPT id and returns the tag plus the DPT to record.
func parseTypeToken(s string) (TypeTag, knx.DPT, error) {
	if t := TypeTag(strings.ToLower(s)); t.IsValid() {
		return t, t.DPT(), nil
	}

	dpt, err := knx.ParseDPT(s)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	t, ok := TypeFromDPT(dpt)
	if !ok {
		return "", "", fmt.Errorf("%w: no value format for DPT %s", ErrUnknownType, dpt)
	}
	return t, dpt, nil
}

// Role is the direction of a datapoint.
type Role string

// Datapoint roles.
const (
	// RoleCommand datapoints accept commands on their main address and
	// report state on all of their addresses.
	RoleCommand Role = "command"

	// RoleListen datapoints only report state.
	RoleListen Role = "listen"
)

// parseRole parses a role token; an empty token means RoleCommand.
func parseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "", string(RoleCommand):
		return RoleCommand, nil
	case string(RoleListen):
		return RoleListen, nil
	default:
		return "", fmt.Errorf("%w: %q (want command or listen)", ErrUnknownRole, s)
	}
}

// Item is one automation entity declared by an item file.
//
// Items are built by the parser and never modified afterwards; accessors on
// ParseResult hand out copies.
type Item struct {
	Name   string   `json:"name" yaml:"name"`
	Kind   Kind     `json:"kind" yaml:"kind"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Icon   string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Line   int      `json:"line" yaml:"line"`
}

// Clone returns an independent copy of the item.
func (i Item) Clone() Item {
	i.Groups = slices.Clone(i.Groups)
	return i
}

// Datapoint binds an item and value format to one or more group addresses.
type Datapoint struct {
	ItemName  string             `json:"item" yaml:"item"`
	Type      TypeTag            `json:"type" yaml:"type"`
	DPT       knx.DPT            `json:"dpt" yaml:"dpt"`
	Role      Role               `json:"role" yaml:"role"`
	Addresses []knx.GroupAddress `json:"addresses" yaml:"addresses"`
	Line      int                `json:"line" yaml:"line"`
}

// MainAddress returns the address commands are sent to.
func (d Datapoint) MainAddress() knx.GroupAddress {
	return d.Addresses[0]
}

// Clone returns an independent copy of the datapoint.
func (d Datapoint) Clone() Datapoint {
	d.Addresses = slices.Clone(d.Addresses)
	return d
}
