package main

import (
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-mht/internal/mht"
)

// itemEntry is one item with its datapoints, as printed by "items".
type itemEntry struct {
	mht.Item   `yaml:",inline"`
	Datapoints []mht.Datapoint `json:"datapoints,omitempty" yaml:"datapoints,omitempty"`
}

func newItemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "items FILE",
		Short: "Print the parsed items in file order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := parseArg(cmd, args[0])
			if err != nil {
				return err
			}
			entries := make([]itemEntry, 0, res.Len())
			for _, item := range res.Items() {
				entries = append(entries, itemEntry{Item: item, Datapoints: res.Datapoints(item.Name)})
			}
			return printValue(cmd, entries)
		},
	}
}
