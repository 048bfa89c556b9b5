package vgtpl

import "strings"

// SpanKind classifies a top-level span produced by the Scanner.
type SpanKind uint8

const (
	SpanEOF SpanKind = iota
	SpanContent
	SpanComment
	SpanVariable
	SpanDirective
)

// Span is one unit of the flat top-level token sequence: a run of
// literal content, a comment body, or the (trim-marker-stripped)
// payload of a {{ }} / {% %} construct.
type Span struct {
	Kind      SpanKind
	Text      string
	TrimOpen  bool // '-' immediately after the opener, honored by trimming preceding content
	TrimClose bool // '-' immediately before the closer, honored by trimming following content
	Offset    int
}

// Scanner walks a template source byte-by-byte, classifying it into
// content, comment, variable and directive spans (spec.md ยง4.1).
type Scanner struct {
	src string
	pos int
}

// NewScanner constructs a Scanner over src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Next returns the next Span, or a Span{Kind: SpanEOF} once the source
// is exhausted.
func (s *Scanner) Next() (Span, error) {
	if s.pos >= len(s.src) {
		return Span{Kind: SpanEOF, Offset: s.pos}, nil
	}

	start := s.pos
	var content []byte
	for s.pos < len(s.src) {
		if s.pos+1 < len(s.src) && s.src[s.pos] == '\\' {
			switch s.src[s.pos+1] {
			case '{', '}', '%', '#':
				content = append(content, s.src[s.pos+1])
				s.pos += 2
				continue
			}
		}
		if strings.HasPrefix(s.src[s.pos:], variableOpen) ||
			strings.HasPrefix(s.src[s.pos:], directiveOpen) ||
			strings.HasPrefix(s.src[s.pos:], commentOpen) {
			break
		}
		content = append(content, s.src[s.pos])
		s.pos++
	}
	if len(content) > 0 {
		return Span{Kind: SpanContent, Text: string(content), Offset: start}, nil
	}

	if s.pos >= len(s.src) {
		return Span{Kind: SpanEOF, Offset: s.pos}, nil
	}

	switch {
	case strings.HasPrefix(s.src[s.pos:], commentOpen):
		return s.scanComment()
	case strings.HasPrefix(s.src[s.pos:], variableOpen):
		return s.scanDelim(variableOpen, variableClose, SpanVariable)
	default:
		return s.scanDelim(directiveOpen, directiveClose, SpanDirective)
	}
}

func (s *Scanner) scanComment() (Span, error) {
	start := s.pos
	s.pos += len(commentOpen)
	idx := strings.Index(s.src[s.pos:], commentClose)
	if idx == -1 {
		return Span{}, &ScanError{Loc: Location{Offset: start}, Msg: "unterminated comment"}
	}
	text := s.src[s.pos : s.pos+idx]
	s.pos += idx + len(commentClose)
	return Span{Kind: SpanComment, Text: text, Offset: start}, nil
}

// scanDelim consumes an opener/closer pair, stripping and recording
// trim markers, and returns the raw payload between them. The search
// for the closer skips over double-quoted string literals so that a
// filter argument like "}}" does not terminate the span early.
func (s *Scanner) scanDelim(open, close string, kind SpanKind) (Span, error) {
	start := s.pos
	s.pos += len(open)

	end, ok := findCloser(s.src, s.pos, close)
	if !ok {
		return Span{}, &ScanError{Loc: Location{Offset: start}, Msg: "unterminated " + open + " ... " + close}
	}
	raw := s.src[s.pos:end]
	s.pos = end + len(close)

	trimOpen, trimClose, payload := stripTrimMarkers(raw)
	return Span{
		Kind:      kind,
		Text:      payload,
		TrimOpen:  trimOpen,
		TrimClose: trimClose,
		Offset:    start,
	}, nil
}

// findCloser locates the first occurrence of close at or after from,
// ignoring any occurrence inside a double-quoted string literal.
func findCloser(src string, from int, close string) (int, bool) {
	inStr := false
	i := from
	for i < len(src) {
		if !inStr && strings.HasPrefix(src[i:], close) {
			return i, true
		}
		if src[i] == '"' {
			inStr = !inStr
		}
		i++
	}
	return 0, false
}

// stripTrimMarkers implements spec.md ยง4.1: "if the first post-opener
// character (after optional whitespace) is '-', the preceding Content
// token is right-trimmed"; symmetrically for the closer.
func stripTrimMarkers(payload string) (trimOpen, trimClose bool, rest string) {
	rest = payload

	lead := strings.TrimLeft(rest, " \t\r\n")
	if strings.HasPrefix(lead, "-") {
		trimOpen = true
		rest = lead[1:]
	}

	trail := strings.TrimRight(rest, " \t\r\n")
	if strings.HasSuffix(trail, "-") {
		trimClose = true
		rest = trail[:len(trail)-1]
	}

	return trimOpen, trimClose, rest
}

// unescapeContent resolves the \{ \} \% \# escapes inside a raw content
// run into their literal single-character forms. The Scanner already
// performs this inline while accumulating content; this helper exists
// for callers that need to unescape a standalone string (e.g. tests).
func unescapeContent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '{', '}', '%', '#':
				b.WriteByte(s[i+1])
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
