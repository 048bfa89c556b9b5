package vgtpl

import "testing"

func scanAll(t *testing.T, src string) []Span {
	t.Helper()
	sc := NewScanner(src)
	var spans []Span
	for {
		sp, err := sc.Next()
		if err != nil {
			t.Fatalf("scan %q: %v", src, err)
		}
		if sp.Kind == SpanEOF {
			return spans
		}
		spans = append(spans, sp)
	}
}

func TestScannerLiteralOnly(t *testing.T) {
	spans := scanAll(t, "hello, world")
	if len(spans) != 1 || spans[0].Kind != SpanContent || spans[0].Text != "hello, world" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestScannerVariable(t *testing.T) {
	spans := scanAll(t, "a{{ foo }}b")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %+v", len(spans), spans)
	}
	if spans[1].Kind != SpanVariable || spans[1].Text != "foo" {
		t.Fatalf("unexpected variable span: %+v", spans[1])
	}
}

func TestScannerComment(t *testing.T) {
	spans := scanAll(t, "a{# drop me #}b")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %+v", spans)
	}
	if spans[0].Text != "a" || spans[1].Kind != SpanComment || spans[2].Text != "b" {
		t.Fatalf("unexpected content around comment: %+v", spans)
	}
}

func TestScannerTrimMarkers(t *testing.T) {
	spans := scanAll(t, "x  {%- if a -%}  y")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %+v", spans)
	}
	if !spans[1].TrimOpen || !spans[1].TrimClose {
		t.Fatalf("expected both trim markers set: %+v", spans[1])
	}
	if spans[1].Text != "if a" {
		t.Fatalf("trim markers should not leak into payload: %q", spans[1].Text)
	}
}

func TestScannerEscapes(t *testing.T) {
	spans := scanAll(t, `literal \{\{ brace`)
	if len(spans) != 1 || spans[0].Text != "literal {{ brace" {
		t.Fatalf("unexpected escape handling: %+v", spans)
	}
}

func TestScannerQuoteAwareCloser(t *testing.T) {
	spans := scanAll(t, `{% include "a}}b" %}`)
	if len(spans) != 1 || spans[0].Kind != SpanDirective {
		t.Fatalf("expected a single directive span, got %+v", spans)
	}
	if spans[0].Text != `include "a}}b"` {
		t.Fatalf("closer search should skip quoted content: %q", spans[0].Text)
	}
}

func TestScannerUnterminatedDelimiter(t *testing.T) {
	sc := NewScanner("{{ foo")
	if _, err := sc.Next(); err == nil {
		t.Fatal("expected an error for an unterminated variable delimiter")
	}
}
