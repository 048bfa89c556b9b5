package eval

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	vgtpl "github.com/vgtpl/vg"
	"github.com/vgtpl/vg/env"
	"github.com/vgtpl/vg/loader"
)

func compileString(t *testing.T, root, src string, seed *env.Environment) string {
	t.Helper()
	target := filepath.Join(root, "t.vg")
	if err := os.WriteFile(target, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := New(root, loader.New(root), nil)
	out, err := ev.Compile("/t.vg", seed)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return out
}

func TestPlainConditional(t *testing.T) {
	root := t.TempDir()
	src := `{% if title %}{{ title }}{% else %}Home{% endif %}`

	if got := compileString(t, root, src, nil); got != "Home" {
		t.Fatalf("got %q, want Home", got)
	}

	seed := env.New()
	seed.Bind("title", env.Text("Hello"))
	if got := compileString(t, root, src, seed); got != "Hello" {
		t.Fatalf("got %q, want Hello", got)
	}
}

func TestBlockThenReference(t *testing.T) {
	root := t.TempDir()
	got := compileString(t, root, `{% block t %}X{% endblock %}<{{ t }}>`, nil)
	if got != "<X>" {
		t.Fatalf("got %q, want <X>", got)
	}
}

func TestFilterPipelineScenario(t *testing.T) {
	root := t.TempDir()
	// detab strips the two tabs, flatten turns the three remaining
	// newlines into spaces, trim removes the leading/trailing ones.
	got := compileString(t, root, "{% block s %}\n\tA\n\tB\n{% endblock %}[{{ s | detab | flatten | trim }}]", nil)
	if got != "[A B]" {
		t.Fatalf("got %q, want [A B]", got)
	}
}

func TestEmptyLoop(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "d"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := compileString(t, root, `{% for i in "/d" %}x{% else %}none{% endfor %}`, nil)
	if got != "none" {
		t.Fatalf("got %q, want none", got)
	}
}

func TestLoopOverFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "d"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "d/a.j", "{% block n %}A{% endblock %}")
	writeFile(t, root, "d/b.j", "{% block n %}B{% endblock %}")

	got := compileString(t, root, `{% for i in "/d" %}[{{ i.n }}]{% endfor %}`, nil)
	if got != "[A][B]" {
		t.Fatalf("got %q, want [A][B]", got)
	}
}

func TestExtends(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p.j", `T:{% if title %}{{ title }}{% else %}H{% endif %}`)

	got := compileString(t, root, `{% extends "/p.j" %}{% block title %}C{% endblock %}`, nil)
	if got != "T:C" {
		t.Fatalf("got %q, want T:C", got)
	}
}

func TestMetaPath(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "d"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "d/a.j", "{% block n %}A{% endblock %}")
	writeFile(t, root, "d/b.j", "{% block n %}B{% endblock %}")

	seed := env.New()
	seed.Bind("d", env.Text("/d"))
	got := compileString(t, root, `{% for i in "{{ d }}" %}{{ i.n }}{% endfor %}`, seed)
	if got != "AB" {
		t.Fatalf("got %q, want AB", got)
	}
}

func TestUndefinedNonNullablePassthrough(t *testing.T) {
	root := t.TempDir()
	got := compileString(t, root, `{{ foo }}`, nil)
	if got != "{{ foo }}" {
		t.Fatalf("got %q, want literal passthrough", got)
	}
}

func TestNullableErasure(t *testing.T) {
	root := t.TempDir()
	got := compileString(t, root, `{{ foo? }}`, nil)
	if got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestCommentErasure(t *testing.T) {
	root := t.TempDir()
	got := compileString(t, root, `a{# drop #}b`, nil)
	if got != "ab" {
		t.Fatalf("got %q, want ab", got)
	}
}

func TestIgnoreSentinel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "t.vg", `{% ignore %}whatever`)
	ev := New(root, loader.New(root), nil)
	_, err := ev.Compile("/t.vg", nil)
	if !errors.Is(err, vgtpl.ErrIgnored) {
		t.Fatalf("expected ErrIgnored, got %v", err)
	}
}

func TestExtendsCycleIsDetected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.vg", `{% extends "/b.vg" %}`)
	writeFile(t, root, "b.vg", `{% extends "/a.vg" %}`)

	ev := New(root, loader.New(root), nil)
	_, err := ev.Compile("/a.vg", nil)
	var cycleErr *vgtpl.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected a CycleError, got %v", err)
	}
}

func TestIncludeParsedTransparency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.vg", "B-CONTENT")
	got := compileString(t, root, `A-<{% include "/b.vg" %}>`, nil)
	if got != "A-<B-CONTENT>" {
		t.Fatalf("got %q", got)
	}
}

func TestIncludeAlias(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nav.vg", `{% block title %}Nav Title{% endblock %}`)
	got := compileString(t, root, `{% include "/nav.vg" as nav %}[{{ nav.title }}]`, nil)
	if got != "[Nav Title]" {
		t.Fatalf("got %q", got)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
