package vgtpl

import (
	"strings"
)

// Parser converts a Scanner's span stream into a Document tree
// (spec.md ยง4.2).
type Parser struct {
	sc              *Scanner
	path            string
	pendingLeftTrim bool
}

// NewParser constructs a Parser over src. path is recorded for error
// locations and as the resulting Document's canonical path.
func NewParser(src, path string) *Parser {
	return &Parser{sc: NewScanner(src), path: path}
}

// ParseDocument scans and parses src into a Document.
func ParseDocument(src, path string) (*Document, error) {
	p := NewParser(src, path)
	doc := &Document{Path: path}

	first := true
	ignored := false
	nodes, _, err := p.parseBody(nil, &first, &ignored, doc)
	if err != nil {
		return nil, err
	}
	if ignored {
		doc.Prelude = PreludeIgnored
		doc.Nodes = nil
		return doc, nil
	}
	doc.Nodes = nodes
	return doc, nil
}

func (p *Parser) errf(offset int, msg string) error {
	return &ParseError{Loc: Location{Path: p.path, Offset: offset}, Msg: msg}
}

// nextSpan wraps Scanner.Next, applying any pending left-trim requested
// by a preceding directive/variable's trailing "-" trim marker.
func (p *Parser) nextSpan() (Span, error) {
	span, err := p.sc.Next()
	if err != nil {
		return Span{}, err
	}
	if span.Kind == SpanContent && p.pendingLeftTrim {
		span.Text = strings.TrimLeft(span.Text, " \t\r\n")
		p.pendingLeftTrim = false
	}
	return span, nil
}

// trimTrailing right-trims the last node in nodes if it is a Literal,
// implementing the "-" trim marker adjacent to an opener.
func trimTrailing(nodes []Node) {
	if len(nodes) == 0 {
		return
	}
	if lit, ok := nodes[len(nodes)-1].(Literal); ok {
		nodes[len(nodes)-1] = Literal{Bytes: strings.TrimRight(lit.Bytes, " \t\r\n")}
	}
}

func isStopWord(kw string, stop []string) bool {
	for _, s := range stop {
		if s == kw {
			return true
		}
	}
	return false
}

// parseBody parses spans until EOF (stopWords == nil, the top-level
// document) or until a directive tag matches one of stopWords, which is
// consumed and its keyword returned as closer.
//
// first and ignoredOut are non-nil only for the top-level document
// call: they implement the "extends and ignore are positional" rule
// (spec.md ยง3, ยง4.2). Nested calls (block/if/for bodies) pass nil for
// both, so extends/ignore encountered there always reclassify to
// literal content.
func (p *Parser) parseBody(stopWords []string, first *bool, ignoredOut *bool, doc *Document) ([]Node, string, error) {
	var nodes []Node
	for {
		span, err := p.nextSpan()
		if err != nil {
			return nil, "", err
		}
		if span.Kind == SpanEOF {
			if stopWords != nil {
				return nil, "", p.errf(span.Offset, "unterminated block: expected one of "+strings.Join(stopWords, ", "))
			}
			return nodes, "", nil
		}

		switch span.Kind {
		case SpanComment:
			continue

		case SpanContent:
			if span.Text == "" {
				continue
			}
			nodes = append(nodes, Literal{Bytes: span.Text})
			if first != nil && strings.TrimSpace(span.Text) != "" {
				*first = false
			}

		case SpanVariable:
			if span.TrimOpen {
				trimTrailing(nodes)
			}
			if span.TrimClose {
				p.pendingLeftTrim = true
			}
			ref, err := p.parseVariableSpan(span)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, ref)
			if first != nil {
				*first = false
			}

		case SpanDirective:
			toks, err := lexTokens(span.Text, span.Offset)
			if err != nil {
				return nil, "", err
			}
			if len(toks) == 0 || toks[0].Kind != TokIdentifier {
				return nil, "", p.errf(span.Offset, "empty or malformed directive")
			}
			keyword := toks[0].Text
			rest := toks[1:]

			if stopWords != nil && isStopWord(keyword, stopWords) {
				if span.TrimOpen {
					trimTrailing(nodes)
				}
				if span.TrimClose {
					p.pendingLeftTrim = true
				}
				return nodes, keyword, nil
			}

			if span.TrimOpen {
				trimTrailing(nodes)
			}
			if span.TrimClose {
				p.pendingLeftTrim = true
			}

			switch keyword {
			case "ignore":
				if first != nil && *first {
					if ignoredOut != nil {
						*ignoredOut = true
					}
					return nil, "", nil
				}
				nodes = append(nodes, Literal{Bytes: reconstructDirective(span)})
				if first != nil {
					*first = false
				}

			case "extends":
				if first != nil && *first && doc.Prelude != PreludeExtending {
					pe, err := p.parsePathExprTokens(rest, span.Offset)
					if err != nil {
						return nil, "", err
					}
					doc.Prelude = PreludeExtending
					doc.ExtendsPath = pe
					*first = false
				} else {
					nodes = append(nodes, Literal{Bytes: reconstructDirective(span)})
					if first != nil {
						*first = false
					}
				}

			case "block":
				n, err := p.parseBlock(rest, doc)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)
				if first != nil {
					*first = false
				}

			case "if":
				n, err := p.parseIf(rest, doc)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)
				if first != nil {
					*first = false
				}

			case "for":
				n, err := p.parseFor(rest, span.Offset, doc)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)
				if first != nil {
					*first = false
				}

			case "include":
				n, err := p.parseInclude(rest, span.Offset)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)
				if first != nil {
					*first = false
				}

			case "endblock", "endif", "endfor", "else":
				return nil, "", p.errf(span.Offset, "unexpected "+keyword)

			default:
				return nil, "", p.errf(span.Offset, "unknown directive "+keyword)
			}
		}
	}
}

func reconstructDirective(span Span) string {
	open, close := directiveOpen, directiveClose
	if span.TrimOpen {
		open += "-"
	}
	if span.TrimClose {
		close = "-" + close
	}
	return open + span.Text + close
}

func reconstructVariable(span Span) string {
	open, close := variableOpen, variableClose
	if span.TrimOpen {
		open += "-"
	}
	if span.TrimClose {
		close = "-" + close
	}
	return open + span.Text + close
}

func (p *Parser) parseVariableSpan(span Span) (VariableRef, error) {
	toks, err := lexTokens(span.Text, span.Offset)
	if err != nil {
		return VariableRef{}, err
	}
	if len(toks) == 0 || toks[0].Kind != TokIdentifier {
		return VariableRef{}, p.errf(span.Offset, "variable reference requires a name")
	}
	namePath := toks[0].Text
	i := 1

	nullable := false
	if i < len(toks) && toks[i].Kind == TokPunct && toks[i].Text == "?" {
		nullable = true
		i++
	}

	var filters []Filter
	for i < len(toks) && toks[i].Kind == TokPunct && toks[i].Text == "|" {
		i++
		if i >= len(toks) || toks[i].Kind != TokIdentifier {
			return VariableRef{}, p.errf(span.Offset, "expected filter name after '|'")
		}
		fname := toks[i].Text
		i++
		switch fname {
		case "flatten":
			filters = append(filters, Filter{Kind: FilterFlatten})
		case "detab":
			filters = append(filters, Filter{Kind: FilterDetab})
		case "trim":
			filters = append(filters, Filter{Kind: FilterTrim})
		case "trimstart":
			filters = append(filters, Filter{Kind: FilterTrimStart})
		case "trimend":
			filters = append(filters, Filter{Kind: FilterTrimEnd})
		case "upper":
			filters = append(filters, Filter{Kind: FilterUpper})
		case "lower":
			filters = append(filters, Filter{Kind: FilterLower})
		case "md":
			filters = append(filters, Filter{Kind: FilterMarkdown})
		case "replace":
			if i+1 >= len(toks) || toks[i].Kind != TokString || toks[i+1].Kind != TokString {
				return VariableRef{}, p.errf(span.Offset, "replace filter requires two string arguments")
			}
			filters = append(filters, Filter{Kind: FilterReplace, From: toks[i].Text, To: toks[i+1].Text})
			i += 2
		default:
			return VariableRef{}, p.errf(span.Offset, "unknown filter "+fname)
		}
	}

	if i != len(toks) {
		return VariableRef{}, p.errf(span.Offset, "unexpected trailing tokens in variable reference")
	}

	ref := VariableRef{NamePath: namePath, Nullable: nullable, Filters: filters}
	ref.Source = reconstructVariable(span)
	return ref, nil
}

func (p *Parser) parseBlock(rest []Token, doc *Document) (Node, error) {
	if len(rest) == 0 || rest[0].Kind != TokIdentifier {
		return nil, p.errf(0, "block requires a name")
	}
	name := rest[0].Text
	body, closer, err := p.parseBody([]string{"endblock"}, nil, nil, doc)
	if err != nil {
		return nil, err
	}
	if closer != "endblock" {
		return nil, p.errf(0, "block missing endblock")
	}
	return Block{Name: name, Body: body}, nil
}

func (p *Parser) parseIf(rest []Token, doc *Document) (Node, error) {
	i := 0
	negative := false
	if i < len(rest) && rest[i].Kind == TokPunct && rest[i].Text == "!" {
		negative = true
		i++
	}
	if i >= len(rest) || rest[i].Kind != TokIdentifier {
		return nil, p.errf(0, "if requires a variable name")
	}
	name := rest[i].Text
	i++

	emptiness := false
	if i < len(rest) && rest[i].Kind == TokIdentifier && rest[i].Text == "not" {
		i++
		if i >= len(rest) || rest[i].Text != "empty" {
			return nil, p.errf(0, "expected 'empty' after 'not'")
		}
		i++
		negative = !negative
		emptiness = true
	} else if i < len(rest) && rest[i].Kind == TokIdentifier && rest[i].Text == "empty" {
		i++
		emptiness = true
	}

	cond := Condition{Negative: negative, Emptiness: emptiness, NamePath: name}

	thenBody, closer, err := p.parseBody([]string{"else", "endif"}, nil, nil, doc)
	if err != nil {
		return nil, err
	}
	var elseBody []Node
	if closer == "else" {
		elseBody, closer, err = p.parseBody([]string{"endif"}, nil, nil, doc)
		if err != nil {
			return nil, err
		}
	}
	if closer != "endif" {
		return nil, p.errf(0, "if missing endif")
	}
	return If{Cond: cond, Then: thenBody, Else: elseBody}, nil
}

func (p *Parser) parseFor(rest []Token, offset int, doc *Document) (Node, error) {
	i := 0
	if i >= len(rest) || rest[i].Kind != TokIdentifier {
		return nil, p.errf(offset, "for requires a loop variable")
	}
	loopVar := rest[i].Text
	i++

	if i >= len(rest) || rest[i].Kind != TokIdentifier || rest[i].Text != "in" {
		return nil, p.errf(offset, "expected 'in' in for loop")
	}
	i++

	if i >= len(rest) || rest[i].Kind != TokString {
		return nil, p.errf(offset, "expected quoted path expression in for loop")
	}
	pathExpr, err := parsePathFragments(rest[i].Text, rest[i].Offset)
	if err != nil {
		return nil, err
	}
	i++

	sortBy := SortName
	reverse := false
	if i < len(rest) && rest[i].Kind == TokPunct && rest[i].Text == "|" {
		i++
		if i < len(rest) && rest[i].Kind == TokPunct && rest[i].Text == "!" {
			reverse = true
			i++
		}
		if i >= len(rest) || rest[i].Kind != TokIdentifier {
			return nil, p.errf(offset, "expected sort key (name|created|modified)")
		}
		switch rest[i].Text {
		case "name":
			sortBy = SortName
		case "created":
			sortBy = SortCreated
		case "modified":
			sortBy = SortModified
		default:
			return nil, p.errf(offset, "unknown sort key "+rest[i].Text)
		}
		i++
	}

	body, closer, err := p.parseBody([]string{"else", "endfor"}, nil, nil, doc)
	if err != nil {
		return nil, err
	}
	var elseBody []Node
	if closer == "else" {
		elseBody, closer, err = p.parseBody([]string{"endfor"}, nil, nil, doc)
		if err != nil {
			return nil, err
		}
	}
	if closer != "endfor" {
		return nil, p.errf(offset, "for missing endfor")
	}
	return For{LoopVar: loopVar, PathExpr: pathExpr, SortBy: sortBy, Reverse: reverse, Body: body, Else: elseBody}, nil
}

func (p *Parser) parseInclude(rest []Token, offset int) (Node, error) {
	i := 0
	isRaw, isMd := false, false
	if i < len(rest) && rest[i].Kind == TokIdentifier && rest[i].Text == "raw" {
		isRaw = true
		i++
	}
	if i < len(rest) && rest[i].Kind == TokIdentifier && rest[i].Text == "md" {
		isMd = true
		i++
	}
	if i >= len(rest) || rest[i].Kind != TokString {
		return nil, p.errf(offset, "expected quoted path in include")
	}
	pathExpr, err := parsePathFragments(rest[i].Text, rest[i].Offset)
	if err != nil {
		return nil, err
	}
	i++

	alias := ""
	if i < len(rest) && rest[i].Kind == TokIdentifier && rest[i].Text == "as" {
		if isRaw {
			return nil, p.errf(offset, "'as' is not allowed with raw include")
		}
		i++
		if i >= len(rest) || rest[i].Kind != TokIdentifier {
			return nil, p.errf(offset, "expected alias name after 'as'")
		}
		alias = rest[i].Text
		i++
	}

	mode := IncludeParsed
	switch {
	case isMd:
		mode = IncludeMarkdown
	case isRaw:
		mode = IncludeRaw
	}

	return Include{PathExpr: pathExpr, Mode: mode, Alias: alias}, nil
}

func (p *Parser) parsePathExprTokens(rest []Token, offset int) ([]PathFragment, error) {
	if len(rest) == 0 || rest[0].Kind != TokString {
		return nil, p.errf(offset, "expected quoted path expression")
	}
	return parsePathFragments(rest[0].Text, rest[0].Offset)
}

// parsePathFragments splits a quoted path expression's raw contents
// into literal and variable-ref fragments (spec.md ยง4.2 meta-paths).
// Filters are not supported within meta-paths.
func parsePathFragments(raw string, base int) ([]PathFragment, error) {
	var frags []PathFragment
	i := 0
	for i < len(raw) {
		idx := strings.Index(raw[i:], variableOpen)
		if idx == -1 {
			frags = append(frags, PathFragment{Literal: raw[i:]})
			break
		}
		if idx > 0 {
			frags = append(frags, PathFragment{Literal: raw[i : i+idx]})
		}
		start := i + idx + len(variableOpen)
		end := strings.Index(raw[start:], variableClose)
		if end == -1 {
			return nil, &ScanError{Loc: Location{Offset: base + i + idx}, Msg: "unterminated variable reference in path expression"}
		}
		name := strings.TrimSpace(raw[start : start+end])
		if name == "" {
			return nil, &ParseError{Loc: Location{Offset: base + start}, Msg: "empty variable reference in path expression"}
		}
		frags = append(frags, PathFragment{VarPath: name, IsVarRef: true})
		i = start + end + len(variableClose)
	}
	return frags, nil
}
