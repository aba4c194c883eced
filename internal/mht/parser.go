package mht

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/nerrad567/gray-logic-mht/internal/knx"
)

// Token syntax.
const (
	commentPrefix    = "#"
	membershipPrefix = "@"
	sectionSep       = ":"
	addressSep       = "+"
	maxSections      = 3 // addresses, type, role

	// Field positions on a declaration line.
	fieldKind  = 0
	fieldName  = 1
	fieldLabel = 2
	fieldIcon  = 3
	firstToken = 4

	// utf8BOM is stripped from the first line.
	utf8BOM = "\ufeff"
)

// Parser turns item files into ParseResults.
//
// A Parser holds only its options and may be used from several goroutines.
type Parser struct {
	opts Options
}

// defaultParser backs the package-level Parse function.
var defaultParser = &Parser{opts: DefaultOptions()}

// NewParser creates a parser for the given file-format options.
//
// Returns:
//   - *Parser: Ready-to-use parser
//   - error: ErrInvalidOptions if the options are unusable
func NewParser(opts Options) (*Parser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Parser{opts: opts}, nil
}

// Parse parses an item file using DefaultOptions.
func Parse(r io.Reader) (*ParseResult, error) {
	return defaultParser.Parse(r)
}

// Options returns the parser's file-format options.
func (p *Parser) Options() Options {
	return p.opts
}

// ParseFile opens, parses and closes the item file at path.
//
// The file is closed on every return path. A missing or unreadable file is
// reported as a *ParseError of kind KindIO.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, ioError(0, fmt.Errorf("opening item file: %w", err))
	}
	defer f.Close() //nolint:errcheck // read-only file

	return p.Parse(f)
}

// Parse reads the whole stream in a single forward pass.
//
// Every declaration line becomes one item plus its datapoints, and the
// indexes are updated as soon as the line is accepted. The first invalid
// line aborts the parse: either a complete ParseResult is returned, or a
// *ParseError and no result.
//
// Parsing the same bytes twice yields results that are Equal.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	// The scanner needs room for a BOM and the line terminator on top of
	// the line itself; the limit proper is checked on the stripped text.
	maxToken := p.opts.MaxLineLength + len(utf8BOM) + len("\r\n")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(bufio.MaxScanTokenSize, maxToken)), maxToken)

	b := &builder{
		opts:      p.opts,
		result:    newParseResult(),
		addrLines: make(map[knx.GroupAddress]int),
	}

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, utf8BOM)
		}
		if len(text) > p.opts.MaxLineLength {
			return nil, syntaxError(line, "line exceeds %d bytes", p.opts.MaxLineLength)
		}
		if err := b.parseLine(line, text); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, syntaxError(line+1, "line exceeds %d bytes", p.opts.MaxLineLength)
		}
		return nil, ioError(0, fmt.Errorf("reading after line %d: %w", line, err))
	}

	return b.result, nil
}

// builder accumulates one parse.
type builder struct {
	opts   Options
	result *ParseResult

	// addrLines records where each group address was first bound.
	addrLines map[knx.GroupAddress]int
}

// token is one trailing field of a declaration line after syntax checks.
type token struct {
	text  string
	group string   // set for memberships
	addrs []string // set for bindings
	typ   string
	role  string
}

// parseLine handles one input line. Syntax rules are checked for the whole
// line before any semantic rule, and nothing is committed unless every
// check passes.
func (b *builder) parseLine(line int, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
		return nil
	}

	fields := strings.Split(trimmed, b.opts.Delimiter)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if len(fields) < minFields {
		return syntaxError(line, "expected at least %d fields (kind%sname), got %d", minFields, b.opts.Delimiter, len(fields))
	}
	if len(fields) > b.opts.MaxFields {
		return syntaxError(line, "too many fields: %d (max %d)", len(fields), b.opts.MaxFields)
	}

	kindTag, name := fields[fieldKind], fields[fieldName]
	if kindTag == "" {
		return syntaxError(line, "missing item kind")
	}
	if name == "" {
		return syntaxError(line, "missing item name")
	}
	if !isValidName(name) {
		return syntaxError(line, "invalid item name %q: use letters, digits and underscores, not starting with a digit", name)
	}

	var label, icon string
	if len(fields) > fieldLabel {
		label = fields[fieldLabel]
	}
	if len(fields) > fieldIcon {
		icon = fields[fieldIcon]
		if strings.ContainsFunc(icon, unicode.IsSpace) {
			return syntaxError(line, "icon %q must not contain whitespace", icon)
		}
	}

	var tokens []token
	if len(fields) > firstToken {
		tokens = make([]token, 0, len(fields)-firstToken)
		for i, f := range fields[firstToken:] {
			tok, err := tokenize(line, firstToken+i+1, f)
			if err != nil {
				return err
			}
			tokens = append(tokens, tok)
		}
	}

	kind, err := ParseKind(kindTag)
	if err != nil {
		return semanticError(line, err, "unknown item kind %q", kindTag)
	}

	if idx, dup := b.result.byName[name]; dup {
		first := b.result.items[idx].Line
		return &ParseError{
			Kind:      KindSemantic,
			Line:      line,
			FirstLine: first,
			Msg:       fmt.Sprintf("duplicate item name %q (first defined on line %d)", name, first),
			Err:       ErrDuplicateItem,
		}
	}

	item := Item{Name: name, Kind: kind, Label: label, Icon: icon, Line: line}
	var dps []Datapoint
	for _, tok := range tokens {
		if tok.group != "" {
			if err := b.checkGroup(line, tok.group); err != nil {
				return err
			}
			if !slices.Contains(item.Groups, tok.group) {
				item.Groups = append(item.Groups, tok.group)
			}
			continue
		}

		dp, err := b.buildDatapoint(line, item, tok, dps)
		if err != nil {
			return err
		}
		dps = append(dps, dp)
	}

	b.result.add(item, dps)
	for _, dp := range dps {
		for _, ga := range dp.Addresses {
			if _, seen := b.addrLines[ga]; !seen {
				b.addrLines[ga] = line
			}
		}
	}
	return nil
}

// tokenize splits a trailing field into a membership or binding.
// field is the 1-based field number used in messages.
func tokenize(line, field int, text string) (token, error) {
	if text == "" {
		return token{}, syntaxError(line, "field %d is empty", field)
	}

	if group, ok := strings.CutPrefix(text, membershipPrefix); ok {
		if !isValidName(group) {
			return token{}, syntaxError(line, "invalid group reference %q in field %d", text, field)
		}
		return token{text: text, group: group}, nil
	}

	sections := strings.Split(text, sectionSep)
	if len(sections) > maxSections {
		return token{}, syntaxError(line, "binding %q has too many %q sections (want address[:type[:role]])", text, sectionSep)
	}
	if sections[0] == "" {
		return token{}, syntaxError(line, "binding %q has no address", text)
	}

	addrs := strings.Split(sections[0], addressSep)
	if slices.Contains(addrs, "") {
		return token{}, syntaxError(line, "binding %q has an empty address", text)
	}

	tok := token{text: text, addrs: addrs}
	switch {
	case len(sections) == 2 && isRoleWord(sections[1]): //nolint:mnd // "addr:role" shorthand
		tok.role = sections[1]
	case len(sections) > 1:
		tok.typ = sections[1]
	}
	if len(sections) > 2 { //nolint:mnd // third section is the role
		tok.role = sections[2]
	}
	return tok, nil
}

// checkGroup verifies that a membership names a group declared earlier.
func (b *builder) checkGroup(line int, group string) error {
	idx, ok := b.result.byName[group]
	if !ok {
		return semanticError(line, ErrUnknownGroup, "unknown group %q (groups must be declared before their members)", group)
	}
	if target := b.result.items[idx]; target.Kind != KindGroup {
		return semanticError(line, ErrUnknownGroup, "%q is a %s item declared on line %d, not a group", group, target.Kind, target.Line)
	}
	return nil
}

// buildDatapoint validates one binding of item against the bindings already
// accepted on this line (pending) and in earlier lines.
func (b *builder) buildDatapoint(line int, item Item, tok token, pending []Datapoint) (Datapoint, error) {
	if item.Kind == KindGroup {
		return Datapoint{}, semanticError(line, ErrTypeMismatch, "group items cannot carry bindings (got %q)", tok.text)
	}

	typ, dpt := TypeTag(""), knx.DPT("")
	if tok.typ == "" {
		typ, _ = item.Kind.DefaultType()
		dpt = typ.DPT()
	} else {
		var err error
		typ, dpt, err = parseTypeToken(tok.typ)
		if err != nil {
			return Datapoint{}, semanticError(line, err, "unknown value type %q in binding %q", tok.typ, tok.text)
		}
	}
	if !item.Kind.Supports(typ) {
		return Datapoint{}, semanticError(line, ErrTypeMismatch, "%s items do not support value type %s (binding %q)", item.Kind, typ, tok.text)
	}

	role, err := parseRole(tok.role)
	if err != nil {
		return Datapoint{}, semanticError(line, err, "unknown role %q in binding %q", tok.role, tok.text)
	}

	if slices.ContainsFunc(pending, func(dp Datapoint) bool { return dp.Type == typ }) {
		return Datapoint{}, semanticError(line, ErrDuplicateBinding, "item %q binds value type %s more than once", item.Name, typ)
	}

	gas := make([]knx.GroupAddress, 0, len(tok.addrs))
	for _, a := range tok.addrs {
		ga, err := knx.ParseGroupAddress(a)
		if err != nil {
			return Datapoint{}, semanticError(line, err, "bad group address %q in binding %q: %v", a, tok.text, err)
		}
		if slices.Contains(gas, ga) {
			return Datapoint{}, semanticError(line, ErrAddressConflict, "group address %s appears twice in binding %q", ga, tok.text)
		}
		if err := b.checkAddress(line, ga, typ, pending); err != nil {
			return Datapoint{}, err
		}
		gas = append(gas, ga)
	}

	return Datapoint{
		ItemName:  item.Name,
		Type:      typ,
		DPT:       dpt,
		Role:      role,
		Addresses: gas,
		Line:      line,
	}, nil
}

// checkAddress keeps the address-to-type index functional: an address may
// be shared by several items, but only with one value format.
func (b *builder) checkAddress(line int, ga knx.GroupAddress, typ TypeTag, pending []Datapoint) error {
	if bound, ok := b.result.types[ga]; ok && bound != typ {
		first := b.addrLines[ga]
		return &ParseError{
			Kind:      KindSemantic,
			Line:      line,
			FirstLine: first,
			Msg:       fmt.Sprintf("group address %s is already bound as %s on line %d, cannot bind it as %s", ga, bound, first, typ),
			Err:       ErrAddressConflict,
		}
	}
	for _, dp := range pending {
		if dp.Type != typ && slices.Contains(dp.Addresses, ga) {
			return &ParseError{
				Kind:      KindSemantic,
				Line:      line,
				FirstLine: line,
				Msg:       fmt.Sprintf("group address %s is bound as both %s and %s", ga, dp.Type, typ),
				Err:       ErrAddressConflict,
			}
		}
	}
	return nil
}

// isRoleWord reports whether s names a role rather than a value type.
func isRoleWord(s string) bool {
	return strings.EqualFold(s, string(RoleCommand)) || strings.EqualFold(s, string(RoleListen))
}

// isValidName reports whether s is a valid item name: ASCII letters, digits
// and underscores, not starting with a digit.
func isValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
