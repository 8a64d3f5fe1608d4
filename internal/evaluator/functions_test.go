package evaluator

import (
	"math"
	"testing"
)

// The function library is exercised through full expressions so argument
// conversion is covered too.
func TestCoreFunctions_Strings(t *testing.T) {
	doc := parseDoc(t, `<doc id="d"><a>  one  two </a><b>three</b></doc>`)

	tests := []struct {
		expr string
		want Value
	}{
		{`string(123)`, "123"},
		{`string(1 div 0)`, "Infinity"},
		{`string(-1 div 0)`, "-Infinity"},
		{`string(-0)`, "0"},
		{`string(0 div -5)`, "0"},
		{`string(0 div 0)`, "NaN"},
		{`string(//b)`, "three"},
		{`string(//missing)`, ""},
		{`concat("foo", "-", "bar")`, "foo-bar"},
		{`starts-with("hello", "he")`, true},
		{`starts-with("hello", "lo")`, false},
		{`contains("hello", "ell")`, true},
		{`substring-before("1999/04/01", "/")`, "1999"},
		{`substring-before("1999", "-")`, ""},
		{`substring-after("1999/04/01", "/")`, "04/01"},
		{`substring-after("1999", "-")`, ""},
		{`substring("12345", 2, 3)`, "234"},
		{`substring("12345", 2)`, "2345"},
		{`substring("12345", 1.5, 2.6)`, "234"},
		{`substring("12345", 0, 3)`, "12"},
		{`substring("12345", 0 div 0, 3)`, ""},
		{`substring("12345", 1, 0 div 0)`, ""},
		{`substring("12345", -42, 1 div 0)`, "12345"},
		{`string-length("héllo")`, 5.0},
		{`string-length("")`, 0.0},
		{`normalize-space("  a   b  ")`, "a b"},
		{`normalize-space(//a)`, "one two"},
		{`translate("bar", "abc", "ABC")`, "BAr"},
		{`translate("--aaa--", "abc-", "ABC")`, "AAA"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evaluate(t, doc, tt.expr, Options{})
			if got != tt.want {
				t.Errorf("%s = %v (%s), want %v", tt.expr, got, TypeName(got), tt.want)
			}
		})
	}
}

func TestCoreFunctions_Numbers(t *testing.T) {
	doc := parseDoc(t, `<doc><n>12.5</n><n>7.5</n><bad>x</bad></doc>`)

	tests := []struct {
		expr string
		want float64
	}{
		{`number("12.5")`, 12.5},
		{`number(" -3 ")`, -3},
		{`number("")`, math.NaN()},
		{`number("12x")`, math.NaN()},
		{`number(true())`, 1},
		{`number(false())`, 0},
		{`number(//n)`, 12.5},
		{`number(//bad)`, math.NaN()},
		{`floor(2.6)`, 2},
		{`floor(-2.6)`, -3},
		{`ceiling(2.1)`, 3},
		{`ceiling(-2.1)`, -2},
		{`round(2.5)`, 3},
		{`round(2.4)`, 2},
		{`round(-2.5)`, -2},
		{`sum(//n)`, 20},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := evaluate(t, doc, tt.expr, Options{}).(float64)
			if !ok {
				t.Fatalf("%s did not return a number", tt.expr)
			}
			if got != tt.want && !(math.IsNaN(got) && math.IsNaN(tt.want)) {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCoreFunctions_Booleans(t *testing.T) {
	doc := parseDoc(t, `<doc xml:lang="en-US"><p>text</p><empty/></doc>`)

	tests := []struct {
		expr string
		want bool
	}{
		{`boolean(1)`, true},
		{`boolean(0)`, false},
		{`boolean(0 div 0)`, false},
		{`boolean("x")`, true},
		{`boolean("")`, false},
		{`boolean(//p)`, true},
		{`boolean(//missing)`, false},
		{`not(boolean(//missing))`, true},
		{`true()`, true},
		{`false()`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := evaluate(t, doc, tt.expr, Options{}).(bool)
			if !ok {
				t.Fatalf("%s did not return a boolean", tt.expr)
			}
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCoreFunctions_Lang(t *testing.T) {
	doc := parseDoc(t, `<doc xml:lang="en-US"><p>text</p><q xml:lang="fr">fr</q></doc>`)

	tests := []struct {
		expr string
		want bool
	}{
		{`boolean(//p[lang("en")])`, true},
		{`boolean(//p[lang("en-us")])`, true},
		{`boolean(//p[lang("fr")])`, false},
		{`boolean(//q[lang("fr")])`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evaluate(t, doc, tt.expr, Options{})
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCoreFunctions_Names(t *testing.T) {
	doc := parseDoc(t, libraryXML)

	tests := []struct {
		expr string
		want string
	}{
		{`name(//book:book)`, "book:book"},
		{`local-name(//book:book)`, "book"},
		{`namespace-uri(//book:book)`, "http://example.com/books"},
		{`name(//magazine)`, "magazine"},
		{`namespace-uri(//magazine)`, ""},
		{`local-name(//@currency)`, "currency"},
		{`local-name(//missing)`, ""},
		{`name(//missing)`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evaluate(t, doc, tt.expr, Options{Namespaces: bookNS})
			if got != tt.want {
				t.Errorf("%s = %v, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCoreFunctions_ID(t *testing.T) {
	doc := parseDoc(t, `<doc><s id="intro">Intro</s><s id="body">Body</s><s xml:id="end">End</s></doc>`)

	tests := []struct {
		expr string
		want []string
	}{
		{`id("intro")`, []string{"Intro"}},
		{`id("intro body")`, []string{"Intro", "Body"}},
		{`id("end")`, []string{"End"}},
		{`id("nope")`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			set := nodeSet(t, evaluate(t, doc, tt.expr, Options{}))
			if len(set) != len(tt.want) {
				t.Fatalf("%s returned %d nodes, want %d", tt.expr, len(set), len(tt.want))
			}
			for i, n := range set {
				if got := n.StringValue(); got != tt.want[i] {
					t.Errorf("%s node %d = %q, want %q", tt.expr, i, got, tt.want[i])
				}
			}
		})
	}
}

func TestCoreFunctions_PositionLast(t *testing.T) {
	doc := parseDoc(t, `<doc><i>1</i><i>2</i><i>3</i></doc>`)

	set := nodeSet(t, evaluate(t, doc, "//i[position() = last()]", Options{}))
	if len(set) != 1 || set[0].StringValue() != "3" {
		t.Fatalf("position()=last() = %d nodes", len(set))
	}

	set = nodeSet(t, evaluate(t, doc, "//i[position() > 1]", Options{}))
	if len(set) != 2 {
		t.Errorf("position() > 1 returned %d nodes, want 2", len(set))
	}
}
