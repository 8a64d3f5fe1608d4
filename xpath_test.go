package xpath_test

import (
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/jacoelho/xpath"
	"github.com/jacoelho/xpath/errors"
)

const libraryXML = `<library xmlns:book="http://example.com/books">
  <book:book category="fiction">
    <book:title lang="en">The Great Gatsby</book:title>
    <book:author>F. Scott Fitzgerald</book:author>
    <book:price currency="USD">12.99</book:price>
  </book:book>
  <book:book category="non-fiction">
    <book:title lang="en">The Elements of Style</book:title>
    <book:author>William Strunk Jr.</book:author>
    <book:author>E. B. White</book:author>
    <book:price currency="USD">9.99</book:price>
  </book:book>
  <magazine category="science">
    <title>Scientific American</title>
    <issue>October 2023</issue>
    <price currency="USD">5.99</price>
  </magazine>
</library>`

var bookNS = map[string]string{"book": "http://example.com/books"}

func parseLibrary(t *testing.T) *xpath.Node {
	t.Helper()
	doc, err := xpath.Parse(strings.NewReader(libraryXML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestFind(t *testing.T) {
	doc := parseLibrary(t)

	title, err := xpath.Find(doc, "/library/magazine/title", nil)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if title == nil {
		t.Fatal("Find() = nil, want node")
	}
	if got := title.StringValue(); got != "Scientific American" {
		t.Errorf("StringValue() = %q, want %q", got, "Scientific American")
	}

	// unprefixed name tests do not match namespaced elements
	missing, err := xpath.Find(doc, "/library/book", nil)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if missing != nil {
		t.Errorf("Find(/library/book) = %v, want nil", missing)
	}
}

func TestFindAll(t *testing.T) {
	doc := parseLibrary(t)

	titles, err := xpath.FindAll(doc, "//book:title", bookNS)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []string{"The Great Gatsby", "The Elements of Style"}
	if len(titles) != len(want) {
		t.Fatalf("FindAll() returned %d nodes, want %d", len(titles), len(want))
	}
	for i, n := range titles {
		if n.StringValue() != want[i] {
			t.Errorf("title %d = %q, want %q", i, n.StringValue(), want[i])
		}
	}
}

func TestFindText(t *testing.T) {
	doc := parseLibrary(t)

	got, err := xpath.FindText(doc, "//issue", nil)
	if err != nil {
		t.Fatalf("FindText() error = %v", err)
	}
	if got != "October 2023" {
		t.Errorf("FindText(//issue) = %q, want %q", got, "October 2023")
	}

	got, err = xpath.FindText(doc, "//nothing", nil)
	if err != nil {
		t.Fatalf("FindText() error = %v", err)
	}
	if got != "" {
		t.Errorf("FindText(//nothing) = %q, want empty", got)
	}
}

func TestQuery_ResultTypes(t *testing.T) {
	doc := parseLibrary(t)

	tests := []struct {
		expr string
		typ  xpath.ResultType
		str  string
	}{
		{"count(//book:book)", xpath.NumberResult, "2"},
		{"//book:title", xpath.NodeSetResult, "The Great Gatsby"},
		{`contains("hello", "ell")`, xpath.BooleanResult, "true"},
		{"string(//issue)", xpath.StringResult, "October 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := xpath.Query(doc, tt.expr, bookNS)
			if err != nil {
				t.Fatalf("Query(%q) error = %v", tt.expr, err)
			}
			if r.Type() != tt.typ {
				t.Errorf("Type() = %s, want %s", r.Type(), tt.typ)
			}
			if r.String() != tt.str {
				t.Errorf("String() = %q, want %q", r.String(), tt.str)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		opts []xpath.CompileOption
		code errors.ErrorCode
	}{
		{
			name: "syntax error",
			expr: "//book[",
			code: errors.ErrSyntax,
		},
		{
			name: "lexical error",
			expr: "a ! b",
			code: errors.ErrLexical,
		},
		{
			name: "unbound prefix",
			expr: "//book:title",
			code: errors.ErrUnboundPrefix,
		},
		{
			name: "unknown function",
			expr: "nope()",
			code: errors.ErrUnknownFunction,
		},
		{
			name: "unknown variable",
			expr: "$x + 1",
			code: errors.ErrUnknownVariable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xpath.Compile(tt.expr, tt.opts...)
			if err == nil {
				t.Fatalf("Compile(%q) error = nil, want %s", tt.expr, tt.code)
			}
			if got := errors.CodeOf(err); got != string(tt.code) {
				t.Errorf("Compile(%q) code = %q, want %q", tt.expr, got, tt.code)
			}
		})
	}
}

func TestCompile_Variables(t *testing.T) {
	doc := parseLibrary(t)

	expr, err := xpath.Compile("//book:price[. > $min]",
		xpath.WithNamespaces(bookNS),
		xpath.WithVariable("min", 10),
	)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	nodes, err := expr.Select(doc)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0].StringValue() != "12.99" {
		t.Errorf("Select() = %d nodes", len(nodes))
	}
}

func TestCompile_CustomFunction(t *testing.T) {
	doc := parseLibrary(t)

	expr, err := xpath.Compile(`//book:title[lower(@lang) = "en"]`,
		xpath.WithNamespaces(bookNS),
		xpath.WithFunction("lower", 1, 1, func(args []any) (any, error) {
			nodes, ok := args[0].([]*xpath.Node)
			if !ok || len(nodes) == 0 {
				return "", nil
			}
			return strings.ToLower(nodes[0].StringValue()), nil
		}),
	)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	nodes, err := expr.Select(doc)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("Select() = %d nodes, want 2", len(nodes))
	}
}

func TestExpr_SelectTypeError(t *testing.T) {
	doc := parseLibrary(t)

	expr, err := xpath.Compile("count(//magazine)")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if _, err := expr.Select(doc); errors.CodeOf(err) != string(errors.ErrType) {
		t.Errorf("Select() error = %v, want type error", err)
	}
}

func TestParseFS(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/catalog.xml": &fstest.MapFile{Data: []byte(libraryXML)},
	}

	doc, err := xpath.ParseFS(fsys, "docs/catalog.xml")
	if err != nil {
		t.Fatalf("ParseFS() error = %v", err)
	}
	got, err := xpath.FindText(doc, "//magazine/title", nil)
	if err != nil {
		t.Fatalf("FindText() error = %v", err)
	}
	if got != "Scientific American" {
		t.Errorf("FindText() = %q", got)
	}
}

func TestParse_Limits(t *testing.T) {
	deep := strings.Repeat("<a>", 10) + strings.Repeat("</a>", 10)
	_, err := xpath.Parse(strings.NewReader(deep), xpath.WithMaxDepth(4))
	if errors.CodeOf(err) != string(errors.ErrLimit) {
		t.Errorf("Parse() error = %v, want limit error", err)
	}
}

func TestExpr_EvaluateConcurrent(t *testing.T) {
	doc := parseLibrary(t)

	expr, err := xpath.Compile("//book:book[book:price > 9]/book:title", xpath.WithNamespaces(bookNS))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	const goroutines = 8
	const iterations = 25

	errCh := make(chan error, goroutines*iterations)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				nodes, err := expr.Select(doc)
				if err != nil {
					errCh <- err
					return
				}
				if len(nodes) != 2 {
					errCh <- errors.Newf(errors.ErrType, "got %d nodes, want 2", len(nodes))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent Select: %v", err)
	}
}
