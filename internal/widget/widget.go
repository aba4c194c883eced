// Package widget maps items to the default widgets a UI renders for them.
//
// The mapping is a closed table over mht.Kind. The UI layer asks by item
// name and gets the widget type together with the item's label and icon.
package widget

import "github.com/nerrad567/gray-logic-mht/internal/mht"

// Type is a UI widget type.
type Type string

// Widget types.
const (
	Switch    Type = "switch"    // toggle control
	Text      Type = "text"      // read-only value display
	Selection Type = "selection" // pick one of several values
	Group     Type = "group"     // container of other widgets
)

// DefaultFor returns the default widget for items of kind k.
func DefaultFor(k mht.Kind) (Type, bool) {
	switch k {
	case mht.KindSwitch, mht.KindShade:
		return Switch, true
	case mht.KindMeasurement, mht.KindContact:
		return Text, true
	case mht.KindString:
		return Selection, true
	case mht.KindGroup:
		return Group, true
	default:
		return "", false
	}
}

// Source is the part of the item model the resolver reads.
// *mht.ParseResult and *provider.Provider both satisfy it.
type Source interface {
	Item(name string) (mht.Item, bool)
	LabelFor(name string) (string, bool)
	IconFor(name string) (string, bool)
}

// Descriptor is everything a UI needs to place an item's widget.
type Descriptor struct {
	Item   string   `json:"item" yaml:"item"`
	Kind   mht.Kind `json:"kind" yaml:"kind"`
	Widget Type     `json:"widget" yaml:"widget"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Icon   string   `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Resolver answers widget queries by item name.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Widget returns the default widget of the named item.
func (r *Resolver) Widget(name string) (Type, bool) {
	item, ok := r.src.Item(name)
	if !ok {
		return "", false
	}
	return DefaultFor(item.Kind)
}

// Describe returns the widget descriptor of the named item. Label and icon
// are left empty when the item has none.
func (r *Resolver) Describe(name string) (Descriptor, bool) {
	item, ok := r.src.Item(name)
	if !ok {
		return Descriptor{}, false
	}
	w, ok := DefaultFor(item.Kind)
	if !ok {
		return Descriptor{}, false
	}
	d := Descriptor{Item: item.Name, Kind: item.Kind, Widget: w}
	d.Label, _ = r.src.LabelFor(name)
	d.Icon, _ = r.src.IconFor(name)
	return d, true
}
