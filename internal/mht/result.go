package mht

import (
	"reflect"
	"slices"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
)

// datapointKey identifies a datapoint by item name and value format.
type datapointKey struct {
	item string
	typ  TypeTag
}

// ParseResult is the immutable model built from one item file.
//
// It holds the items in file order plus lookup indexes derived from them.
// The indexes are caches over the items and datapoints: every key names an
// item of the result and every address in the type index is bound by at
// least one item.
//
// A ParseResult is never modified after Parse returns, so it may be shared
// between goroutines without locking. All methods accept a nil receiver and
// then behave as for an empty file.
type ParseResult struct {
	items  []Item
	byName map[string]int

	icons  map[string]string
	labels map[string]string

	datapoints map[datapointKey]Datapoint
	bindings   map[string][]TypeTag // binding order per item
	addresses  map[string][]knx.GroupAddress
	types      map[knx.GroupAddress]TypeTag
	members    map[string][]string
}

func newParseResult() *ParseResult {
	return &ParseResult{
		byName:     make(map[string]int),
		icons:      make(map[string]string),
		labels:     make(map[string]string),
		datapoints: make(map[datapointKey]Datapoint),
		bindings:   make(map[string][]TypeTag),
		addresses:  make(map[string][]knx.GroupAddress),
		types:      make(map[knx.GroupAddress]TypeTag),
		members:    make(map[string][]string),
	}
}

// add commits one validated item and its datapoints, updating every index
// in the same step.
func (r *ParseResult) add(item Item, dps []Datapoint) {
	r.byName[item.Name] = len(r.items)
	r.items = append(r.items, item)

	if item.Icon != "" {
		r.icons[item.Name] = item.Icon
	}
	if item.Label != "" {
		r.labels[item.Name] = item.Label
	}
	for _, g := range item.Groups {
		r.members[g] = append(r.members[g], item.Name)
	}

	for _, dp := range dps {
		r.datapoints[datapointKey{item: item.Name, typ: dp.Type}] = dp
		r.bindings[item.Name] = append(r.bindings[item.Name], dp.Type)
		for _, ga := range dp.Addresses {
			r.types[ga] = dp.Type
			if !slices.Contains(r.addresses[item.Name], ga) {
				r.addresses[item.Name] = append(r.addresses[item.Name], ga)
			}
		}
	}
}

// Len returns the number of items.
func (r *ParseResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Items returns copies of all items in file order.
func (r *ParseResult) Items() []Item {
	if r == nil {
		return []Item{}
	}
	items := make([]Item, len(r.items))
	for i, item := range r.items {
		items[i] = item.Clone()
	}
	return items
}

// Names returns all item names in file order.
func (r *ParseResult) Names() []string {
	if r == nil {
		return []string{}
	}
	names := make([]string, len(r.items))
	for i, item := range r.items {
		names[i] = item.Name
	}
	return names
}

// Item returns the item with the given name.
func (r *ParseResult) Item(name string) (Item, bool) {
	if r == nil {
		return Item{}, false
	}
	idx, ok := r.byName[name]
	if !ok {
		return Item{}, false
	}
	return r.items[idx].Clone(), true
}

// IconFor returns the icon id of an item, if it has one.
func (r *ParseResult) IconFor(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	icon, ok := r.icons[name]
	return icon, ok
}

// LabelFor returns the label of an item, if it has one.
func (r *ParseResult) LabelFor(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	label, ok := r.labels[name]
	return label, ok
}

// DatapointFor returns the datapoint binding an item to a value format.
func (r *ParseResult) DatapointFor(name string, t TypeTag) (Datapoint, bool) {
	if r == nil {
		return Datapoint{}, false
	}
	dp, ok := r.datapoints[datapointKey{item: name, typ: t}]
	if !ok {
		return Datapoint{}, false
	}
	return dp.Clone(), true
}

// DatapointForAddress resolves the value format bound to ga and returns the
// item's datapoint of that format. An unknown address is not an error; it
// reports not found.
func (r *ParseResult) DatapointForAddress(name string, ga knx.GroupAddress) (Datapoint, bool) {
	t, ok := r.TypeFor(ga)
	if !ok {
		return Datapoint{}, false
	}
	return r.DatapointFor(name, t)
}

// Datapoints returns an item's datapoints in binding order.
func (r *ParseResult) Datapoints(name string) []Datapoint {
	if r == nil {
		return []Datapoint{}
	}
	types := r.bindings[name]
	dps := make([]Datapoint, 0, len(types))
	for _, t := range types {
		dps = append(dps, r.datapoints[datapointKey{item: name, typ: t}].Clone())
	}
	return dps
}

// DatapointCount returns the number of datapoints across all items.
func (r *ParseResult) DatapointCount() int {
	if r == nil {
		return 0
	}
	return len(r.datapoints)
}

// AddressesFor returns the addresses an item listens on, in binding order.
func (r *ParseResult) AddressesFor(name string) []knx.GroupAddress {
	if r == nil {
		return []knx.GroupAddress{}
	}
	return slices.Clone(r.addresses[name])
}

// TypeFor returns the value format bound to a group address.
func (r *ParseResult) TypeFor(ga knx.GroupAddress) (TypeTag, bool) {
	if r == nil {
		return "", false
	}
	t, ok := r.types[ga]
	return t, ok
}

// Addresses returns every bound group address in ascending order.
func (r *ParseResult) Addresses() []knx.GroupAddress {
	if r == nil {
		return []knx.GroupAddress{}
	}
	out := make([]knx.GroupAddress, 0, len(r.types))
	for ga := range r.types {
		out = append(out, ga)
	}
	slices.SortFunc(out, func(a, b knx.GroupAddress) int {
		return int(a.ToUint16()) - int(b.ToUint16())
	})
	return out
}

// ListeningItemNames returns the names of the items listening on ga, in
// file order. The result is empty for an unknown address.
func (r *ParseResult) ListeningItemNames(ga knx.GroupAddress) []string {
	names := []string{}
	if r == nil {
		return names
	}
	for _, item := range r.items {
		if slices.Contains(r.addresses[item.Name], ga) {
			names = append(names, item.Name)
		}
	}
	return names
}

// Members returns the names of the items belonging to a group, in file order.
func (r *ParseResult) Members(group string) []string {
	if r == nil {
		return []string{}
	}
	return append([]string{}, r.members[group]...)
}

// Equal reports whether two results hold the same items in the same order
// and the same index contents.
func (r *ParseResult) Equal(other *ParseResult) bool {
	if r == nil || other == nil {
		return r.Len() == 0 && other.Len() == 0
	}
	return reflect.DeepEqual(r, other)
}
