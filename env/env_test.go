package env

import "testing"

func TestTextExistenceAndEmptiness(t *testing.T) {
	e := New()
	e.Bind("title", Text("Hello"))
	e.Bind("subtitle", Text(""))

	if !e.Exists("title") {
		t.Fatal("expected title to exist")
	}
	if e.Exists("missing") {
		t.Fatal("missing should not exist")
	}
	if e.IsEmpty("title") {
		t.Fatal("title is not empty")
	}
	if !e.IsEmpty("subtitle") {
		t.Fatal("subtitle should be empty")
	}
	if !e.IsEmpty("missing") {
		t.Fatal("a missing binding should be treated as empty")
	}
}

func TestFrameStackShadowing(t *testing.T) {
	e := New()
	e.Bind("x", Text("outer"))
	e.PushFrame()
	e.Bind("x", Text("inner"))

	v, ok := e.Lookup("x")
	if !ok || v.String() != "inner" {
		t.Fatalf("expected inner binding, got %q ok=%v", v.String(), ok)
	}

	e.PopFrame()
	v, ok = e.Lookup("x")
	if !ok || v.String() != "outer" {
		t.Fatalf("expected outer binding after pop, got %q ok=%v", v.String(), ok)
	}
}

func TestLoopItemDottedLookup(t *testing.T) {
	e := New()
	item := LoopItem("<rendered>", map[string]string{"n": "A"}, 1, 3)
	e.Bind("i", item)

	if v, ok := e.Lookup("i"); !ok || v.String() != "<rendered>" {
		t.Fatalf("bare loop var should emit captured render, got %q ok=%v", v.String(), ok)
	}
	if v, ok := e.Lookup("i.n"); !ok || v.String() != "A" {
		t.Fatalf("expected per-file block n=A, got %q ok=%v", v.String(), ok)
	}
	if v, ok := e.Lookup("i.loop.index"); !ok || v.String() != "1" {
		t.Fatalf("expected loop.index=1, got %q ok=%v", v.String(), ok)
	}
	if v, ok := e.Lookup("i.loop.position"); !ok || v.String() != "2" {
		t.Fatalf("expected loop.position=2, got %q ok=%v", v.String(), ok)
	}
	if _, ok := e.Lookup("i.loop.first"); ok {
		t.Fatal("loop.first should be absent for a middle item")
	}
	if _, ok := e.Lookup("i.loop.last"); ok {
		t.Fatal("loop.last should be absent for a middle item")
	}
	if _, ok := e.Lookup("i.missing"); ok {
		t.Fatal("unknown per-file block should not resolve")
	}
}

func TestLoopItemFirstAndLastPresenceIsPositional(t *testing.T) {
	e := New()
	e.Bind("first", LoopItem("f", nil, 0, 3))
	e.Bind("mid", LoopItem("m", nil, 1, 3))
	e.Bind("last", LoopItem("l", nil, 2, 3))

	if v, ok := e.Lookup("first.loop.first"); !ok || v.String() != "true" {
		t.Fatalf("expected loop.first present and true for index 0, got %q ok=%v", v.String(), ok)
	}
	if _, ok := e.Lookup("first.loop.last"); ok {
		t.Fatal("loop.last should be absent for the first of three items")
	}
	if _, ok := e.Lookup("mid.loop.first"); ok {
		t.Fatal("loop.first should be absent for a middle item")
	}
	if _, ok := e.Lookup("mid.loop.last"); ok {
		t.Fatal("loop.last should be absent for a middle item")
	}
	if v, ok := e.Lookup("last.loop.last"); !ok || v.String() != "true" {
		t.Fatalf("expected loop.last present and true for the final index, got %q ok=%v", v.String(), ok)
	}
	if _, ok := e.Lookup("last.loop.first"); ok {
		t.Fatal("loop.first should be absent for the last of three items")
	}
}

func TestExactDottedKeyForAliasBindings(t *testing.T) {
	e := New()
	e.Bind("nav.title", Text("Home"))
	if v, ok := e.Lookup("nav.title"); !ok || v.String() != "Home" {
		t.Fatalf("expected exact-match flat lookup to win, got %q ok=%v", v.String(), ok)
	}
}
