package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-mht/internal/mht"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mhtcheck",
		Short:         "Validate and inspect MHT item files",
		Long:          "mhtcheck parses an MHT item file and reports the first problem, or prints the parsed items and lookups.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("delimiter", mht.DefaultDelimiter, "Field delimiter of the item file")
	root.PersistentFlags().Int("max-fields", mht.DefaultMaxFields, "Maximum fields per line")
	root.PersistentFlags().String("format", "yaml", "Output format: yaml or json")

	root.AddCommand(newValidateCmd(), newItemsCmd(), newLookupCmd())
	return root
}

// parseArg parses the item file named by the single positional argument
// using the persistent format flags.
func parseArg(cmd *cobra.Command, path string) (*mht.ParseResult, error) {
	delimiter, _ := cmd.Flags().GetString("delimiter") //nolint:errcheck // flag is registered on root
	maxFields, _ := cmd.Flags().GetInt("max-fields")   //nolint:errcheck // flag is registered on root

	opts := mht.DefaultOptions()
	opts.Delimiter = delimiter
	opts.MaxFields = maxFields

	parser, err := mht.NewParser(opts)
	if err != nil {
		return nil, err
	}
	return parser.ParseFile(path)
}

// printValue writes v in the format selected by --format.
func printValue(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag is registered on root
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("json encode: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
	}
}
