package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/widget"
)

// ItemView is the full description of one item.
type ItemView struct {
	mht.Item
	Widget     widget.Type        `json:"widget"`
	Datapoints []mht.Datapoint    `json:"datapoints"`
	Addresses  []knx.GroupAddress `json:"addresses"`
}

// ListeningItems answers which items listen on a group address.
type ListeningItems struct {
	Address knx.GroupAddress `json:"address"`
	Type    mht.TypeTag      `json:"type,omitempty"`
	Items   []string         `json:"items"`
}

// handleListItems returns all items in file order.
func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	items := s.provider.Items()
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// handleGetItem returns an item with its widget, datapoints and addresses.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res := s.provider.Current()

	item, ok := res.Item(name)
	if !ok {
		writeNotFound(w, "item not found")
		return
	}
	wt, _ := widget.DefaultFor(item.Kind) //nolint:errcheck // every parsed kind has a widget
	writeJSON(w, http.StatusOK, ItemView{
		Item:       item,
		Widget:     wt,
		Datapoints: res.Datapoints(name),
		Addresses:  res.AddressesFor(name),
	})
}

// handleGetWidget returns the default widget descriptor for an item.
func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	desc, ok := widget.NewResolver(s.provider.Current()).Describe(chi.URLParam(r, "name"))
	if !ok {
		writeNotFound(w, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// handleListDatapoints returns an item's datapoints, or with ?address=
// the datapoint whose value format is bound to that address.
func (s *Server) handleListDatapoints(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res := s.provider.Current()

	if _, ok := res.Item(name); !ok {
		writeNotFound(w, "item not found")
		return
	}

	raw := r.URL.Query().Get("address")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{"datapoints": res.Datapoints(name)})
		return
	}

	ga, err := knx.ParseGroupAddress(raw)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	dp, ok := res.DatapointForAddress(name, ga)
	if !ok {
		writeNotFound(w, "no datapoint for address "+ga.String())
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

// handleGetDatapoint returns the datapoint of an item for a value format.
func (s *Server) handleGetDatapoint(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t := mht.TypeTag(strings.ToLower(chi.URLParam(r, "type")))
	if !t.IsValid() {
		writeBadRequest(w, "unknown type "+string(t))
		return
	}

	dp, ok := s.provider.DatapointFor(name, t)
	if !ok {
		writeNotFound(w, "datapoint not found")
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

// handleListeningItems returns the items listening on a group address.
// The address may be URL-encoded ("1%2F2%2F3") or dotted ("1.2.3").
func (s *Server) handleListeningItems(w http.ResponseWriter, r *http.Request) {
	ga, err := knx.ParseGroupAddressFromURL(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res := s.provider.Current()
	t, _ := res.TypeFor(ga) //nolint:errcheck // unbound addresses have no type and no items
	writeJSON(w, http.StatusOK, ListeningItems{
		Address: ga,
		Type:    t,
		Items:   res.ListeningItemNames(ga),
	})
}

// handleGroupMembers returns the members of a group item in file order.
func (s *Server) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res := s.provider.Current()

	item, ok := res.Item(name)
	if !ok || item.Kind != mht.KindGroup {
		writeNotFound(w, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group":   name,
		"members": res.Members(name),
	})
}
