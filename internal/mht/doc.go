// Package mht parses item files into an immutable, indexed item model.
//
// An item file declares one item per line:
//
//	# kind|name|label|icon|tokens...
//	group|Kitchen|Kitchen|kitchen
//	switch|Kitchen_Light|Kitchen Light|lightbulb|@Kitchen|1.2.3:bool
//	switch|Kitchen_Dimmer|Dimmer|slider|@Kitchen|1/2/4+1/2/5:percent
//	measurement|Kitchen_Temp|Temperature|temperature|@Kitchen|3/1/0:9.001:listen
//
// Trailing tokens are group memberships ("@Group") or bindings. A binding is
// one or more group addresses joined by "+", optionally followed by a value
// type (a TypeTag name or a KNX DPT id) and a role ("command" or "listen").
// The first address of a binding is where commands go; every address of the
// binding reports state.
//
// # Parsing
//
// Parse reads the stream once, front to back. Each accepted line adds one
// item and its datapoints to the result and its indexes in a single step.
// The first invalid line ends the parse with a *ParseError and no result:
//
//	res, err := mht.Parse(f)
//	var perr *mht.ParseError
//	if errors.As(err, &perr) {
//	    log.Printf("line %d: %s", perr.Line, perr.Msg)
//	}
//
// Errors match ErrIO, ErrSyntax or ErrSemantic with errors.Is and unwrap to
// the specific cause, such as ErrDuplicateItem or knx.ErrInvalidGroupAddress.
//
// # Lookups
//
// ParseResult answers the questions the UI and bus layers ask:
//
//	icon, ok := res.IconFor("Kitchen_Light")
//	dp, ok := res.DatapointFor("Kitchen_Dimmer", mht.TypePercent)
//	dp, ok = res.DatapointForAddress("Kitchen_Dimmer", knx.MustParseGroupAddress("1/2/5"))
//	names := res.ListeningItemNames(knx.MustParseGroupAddress("1/2/3"))
//
// Missing keys report not found and never fall back to a default.
package mht
