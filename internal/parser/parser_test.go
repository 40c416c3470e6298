package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/artifact"
)

const goSource = `package main

import (
	"fmt"
	"strings"
)

// Greet says hello.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s!", strings.TrimSpace(name))
}

func Add(a, b int) int {
	return a + b
}

type Server struct {
	Host string
	Port int
}
`

const javaSource = `package demo;

import java.util.List;

public class Shapes {
    private int count;

    public Shapes() {
        count = 0;
    }

    public int area(int w, int h) {
        return w * h;
    }
}
`

func goPolicy() *artifact.Policy {
	p := artifact.NewPolicy("go")
	p.AddUnordered("function_declaration", "method_declaration", "type_declaration", "import_spec")
	p.AddTextual("import_spec")
	return p
}

func parse(t *testing.T, p *Parser, lang, src string) *artifact.Node {
	t.Helper()
	n, err := p.Parse(context.Background(), lang, []byte(src), artifact.Left)
	require.NoError(t, err)
	return n
}

func findKind(n *artifact.Node, kind string) []*artifact.Node {
	var out []*artifact.Node
	if n.Kind() == kind {
		out = append(out, n)
	}
	for _, c := range n.Children() {
		out = append(out, findKind(c, kind)...)
	}
	return out
}

// =============================================================================
// Language detection
// =============================================================================

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"main.go", "go", true},
		{"Main.JAVA", "java", true},
		{"app.ts", "typescript", true},
		{"view.tsx", "typescript", true},
		{"lib.rs", "rust", true},
		{"script.py", "python", true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()
	langs := Languages()
	assert.Contains(t, langs, "go")
	assert.Contains(t, langs, "java")
	assert.Len(t, langs, 10)
	assert.IsIncreasing(t, langs)
}

// =============================================================================
// Parsing
// =============================================================================

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()
	p := New(map[string]*artifact.Policy{"go": goPolicy()})

	for _, tc := range []struct{ lang, src string }{
		{"go", goSource},
		{"java", javaSource},
		{"go", "\n\n" + goSource + "\n// trailing\n"},
	} {
		root := parse(t, p, tc.lang, tc.src)
		assert.Equal(t, tc.src, string(Print(root)), tc.lang)
	}
}

func TestParse_RoundTripAdjacentChildren(t *testing.T) {
	t.Parallel()
	p := New(nil)

	for _, src := range []string{
		"package p\n\nfunc X() {}\n",
		"package p\n\nfunc Add(a, b int) int { return a + b }\n",
		"package p\n\nvar s = f(x)[0]\n",
		"package p\n\nfunc (s *S) M() {\n\ts.n++\n}\n",
	} {
		root := parse(t, p, "go", src)
		assert.Equal(t, src, string(Print(root)))
	}
}

func TestParse_LabelsIgnoreSeparators(t *testing.T) {
	t.Parallel()
	p := New(nil)

	one := parse(t, p, "go", "package p\n\nfunc a() {\n\tx()\n}\n")
	two := parse(t, p, "go", "package p\n\nfunc a() {\n\tx()\n\ty(1, 2)\n}\n\nfunc b() {}\n")
	assert.True(t, one.Matches(two), "%q vs %q", one.Label(), two.Label())

	blocks1, blocks2 := findKind(one, "block"), findKind(two, "block")
	require.NotEmpty(t, blocks1)
	require.NotEmpty(t, blocks2)
	assert.True(t, blocks1[0].Matches(blocks2[0]), "%q vs %q", blocks1[0].Label(), blocks2[0].Label())

	args1 := findKind(parse(t, p, "go", "package p\n\nvar v = f(a)\n"), "argument_list")
	args2 := findKind(parse(t, p, "go", "package p\n\nvar v = f(a, b)\n"), "argument_list")
	require.Len(t, args1, 1)
	require.Len(t, args2, 1)
	assert.Equal(t, args1[0].Label(), args2[0].Label())
}

func TestParse_LabelsAndOrdering(t *testing.T) {
	t.Parallel()
	root := parse(t, New(map[string]*artifact.Policy{"go": goPolicy()}), "go", goSource)

	assert.Equal(t, "source_file", root.Kind())
	assert.Equal(t, "left:0", root.ID())

	funcs := findKind(root, "function_declaration")
	require.Len(t, funcs, 2)
	assert.True(t, strings.HasPrefix(funcs[0].Label(), "Greet "), funcs[0].Label())
	assert.True(t, strings.HasPrefix(funcs[1].Label(), "Add "), funcs[1].Label())
	assert.Contains(t, funcs[0].Label(), "func")
	assert.False(t, funcs[0].IsOrderSignificant())

	specs := findKind(root, "import_spec")
	require.Len(t, specs, 2)
	assert.True(t, specs[0].IsLeaf(), "textual kinds are leaves")
	assert.Equal(t, `"fmt"`, specs[0].Label())

	// Statements keep their order.
	returns := findKind(root, "return_statement")
	require.NotEmpty(t, returns)
	assert.True(t, returns[0].IsOrderSignificant())
}

func TestParse_OperatorsAreInLabels(t *testing.T) {
	t.Parallel()
	p := New(nil)
	plus := findKind(parse(t, p, "go", "package p\n\nvar x = a + b\n"), "binary_expression")
	minus := findKind(parse(t, p, "go", "package p\n\nvar x = a - b\n"), "binary_expression")
	require.Len(t, plus, 1)
	require.Len(t, minus, 1)
	assert.False(t, plus[0].Matches(minus[0]))
}

func TestParse_WhitespaceDoesNotChangeLeafLabels(t *testing.T) {
	t.Parallel()
	p := New(map[string]*artifact.Policy{"go": goPolicy()})
	a := findKind(parse(t, p, "go", "package p\n\nimport \"fmt\"\n"), "import_spec")
	b := findKind(parse(t, p, "go", "package p\n\nimport   \"fmt\"\n"), "import_spec")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.True(t, a[0].Matches(b[0]))
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := New(nil).Parse(context.Background(), "go", []byte("this is not valid go code }{}{"), artifact.Left)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := New(nil).Parse(context.Background(), "cobol", []byte("IDENTIFICATION DIVISION."), artifact.Left)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

// =============================================================================
// Printing
// =============================================================================

func TestPrint_Conflict(t *testing.T) {
	t.Parallel()
	p := New(nil)
	root := parse(t, p, "go", "package p\n\nfunc f() {\n\ta()\n\tb()\n}\n")

	// Replace the second statement by a conflict between two calls.
	stmts := findKind(root, "expression_statement")
	require.Len(t, stmts, 2)
	parent := stmts[0].Parent()
	left := stmts[1].Clone()
	right := findKind(parse(t, p, "go", "package p\n\nfunc g() {\n\tc()\n}\n"), "expression_statement")[0]
	parent.DeleteChildren()
	parent.AddChild(stmts[0])
	parent.AddChild(artifact.NewConflict(left, right))

	out := string(NewPrinter(Markers{Left: "ours", Right: "theirs"}).Print(root))
	want := "package p\n\nfunc f() {\n\ta()\n<<<<<<< ours\n\tb()\n=======\n\tc()\n>>>>>>> theirs\n}\n"
	assert.Equal(t, want, out)
}

func TestPrint_AppendedChildUsesParentGap(t *testing.T) {
	t.Parallel()
	p := New(nil)
	root := parse(t, p, "go", "package p\n\nfunc f() {\n\ta()\n\tb()\n}\n")
	parent := findKind(root, "expression_statement")[0].Parent()
	extra := findKind(parse(t, p, "go", "package p\n\nfunc g() {\n\tc()\n}\n"), "expression_statement")[0]

	parent.AddChild(extra.Clone())
	assert.Equal(t, "package p\n\nfunc f() {\n\ta()\n\tb()\n\tc()\n}\n", string(Print(root)))
}
