// mhtcheck validates and inspects MHT item files offline.
//
//	mhtcheck validate home.items
//	mhtcheck items home.items --format json
//	mhtcheck lookup home.items --address 1/2/3
//	mhtcheck lookup home.items --item Kitchen_Light --type bool
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/gray-logic-mht/internal/mht"
)

// Version information - set at build time via ldflags
var version = "dev"

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		printError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// printError reports parse errors as "line N: message" and anything else
// verbatim.
func printError(w io.Writer, err error) {
	var perr *mht.ParseError
	if errors.As(err, &perr) && perr.Line > 0 {
		fmt.Fprintf(w, "line %d: %s\n", perr.Line, perr.Msg)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
