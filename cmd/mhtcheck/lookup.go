package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/widget"
)

// errNotFound is returned when a lookup matches nothing.
var errNotFound = errors.New("not found")

// addressLookup is printed for --address.
type addressLookup struct {
	Address knx.GroupAddress `json:"address" yaml:"address"`
	Type    mht.TypeTag      `json:"type,omitempty" yaml:"type,omitempty"`
	Items   []string         `json:"items" yaml:"items"`
}

// itemLookup is printed for --item without --type.
type itemLookup struct {
	widget.Descriptor `yaml:",inline"`
	Datapoints        []mht.Datapoint `json:"datapoints" yaml:"datapoints"`
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup FILE",
		Short: "Look up listening items by address, or an item's datapoints",
		Long: `Look up the parsed model.

  --address A            items listening on group address A
  --item NAME            item description, widget and datapoints
  --item NAME --type T   the item's datapoint for value format T
  --item NAME --address A  the item's datapoint for the format bound to A`,
		Args: cobra.ExactArgs(1),
		RunE: runLookup,
	}
	cmd.Flags().String("address", "", "Group address (1/2/3 or 1.2.3)")
	cmd.Flags().String("item", "", "Item name")
	cmd.Flags().String("type", "", "Value format (bool, percent, decimal, ...)")
	return cmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	address, _ := cmd.Flags().GetString("address") //nolint:errcheck // flags registered above
	name, _ := cmd.Flags().GetString("item")       //nolint:errcheck // flags registered above
	typ, _ := cmd.Flags().GetString("type")        //nolint:errcheck // flags registered above

	if address == "" && name == "" {
		return fmt.Errorf("one of --address or --item is required")
	}
	if typ != "" && name == "" {
		return fmt.Errorf("--type requires --item")
	}

	res, err := parseArg(cmd, args[0])
	if err != nil {
		return err
	}

	var ga knx.GroupAddress
	if address != "" {
		if ga, err = knx.ParseGroupAddress(address); err != nil {
			return err
		}
	}

	switch {
	case name == "":
		t, _ := res.TypeFor(ga) //nolint:errcheck // unbound addresses print without a type
		return printValue(cmd, addressLookup{Address: ga, Type: t, Items: res.ListeningItemNames(ga)})

	case typ != "":
		t := mht.TypeTag(strings.ToLower(typ))
		if !t.IsValid() {
			return fmt.Errorf("unknown type %q", typ)
		}
		dp, ok := res.DatapointFor(name, t)
		if !ok {
			return fmt.Errorf("%w: item %q has no %s datapoint", errNotFound, name, t)
		}
		return printValue(cmd, dp)

	case address != "":
		dp, ok := res.DatapointForAddress(name, ga)
		if !ok {
			return fmt.Errorf("%w: item %q has no datapoint for %s", errNotFound, name, ga)
		}
		return printValue(cmd, dp)

	default:
		desc, ok := widget.NewResolver(res).Describe(name)
		if !ok {
			return fmt.Errorf("%w: item %q", errNotFound, name)
		}
		return printValue(cmd, itemLookup{Descriptor: desc, Datapoints: res.Datapoints(name)})
	}
}
