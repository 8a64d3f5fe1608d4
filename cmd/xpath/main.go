package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/jacoelho/xpath"
	"github.com/jacoelho/xpath/pkg/htmltree"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xpath", flag.ContinueOnError)
	fs.SetOutput(stderr)

	namespaces := map[string]string{}
	fs.Func("ns", "namespace binding as prefix=uri (repeatable)", func(v string) error {
		prefix, uri, ok := strings.Cut(v, "=")
		if !ok || prefix == "" || uri == "" {
			return fmt.Errorf("expected prefix=uri, got %q", v)
		}
		namespaces[prefix] = uri
		return nil
	})
	htmlInput := fs.Bool("html", false, "parse the input as HTML5 instead of XML")
	textOutput := fs.Bool("text", false, "print string-values instead of XML for matched nodes")
	cpuProfilePath := fs.String("cpuprofile", "", "write CPU profile to file")
	memProfilePath := fs.String("memprofile", "", "write memory profile to file")

	var usageErr error
	fs.Usage = func() {
		usageErr = errors.Join(
			usageErr,
			writef(stderr, "Usage: %s [--ns prefix=uri]... [--html] [--text] <expression> <document>\n\n", os.Args[0]),
			writeln(stderr, "Evaluates an XPath 1.0 expression against a document."),
			writeln(stderr, `Pass "-" as the document to read standard input.`),
			writeln(stderr),
			writeln(stderr, "Options:"),
		)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	remaining := fs.Args()
	if len(remaining) != 2 {
		if err := writeln(stderr, "error: expression and document arguments are required"); err != nil {
			return 1
		}
		fs.Usage()
		if usageErr != nil {
			return 1
		}
		return 2
	}
	expression, docPath := remaining[0], remaining[1]

	if *cpuProfilePath != "" {
		stopCPUProfile, err := startCPUProfile(*cpuProfilePath)
		if err != nil {
			if writeErr := writef(stderr, "error starting CPU profile: %v\n", err); writeErr != nil {
				return 1
			}
			return 1
		}
		defer func() {
			if err := stopCPUProfile(); err != nil {
				_ = writef(stderr, "error stopping CPU profile: %v\n", err)
			}
		}()
	}

	if *memProfilePath != "" {
		defer func() {
			if err := writeMemProfile(*memProfilePath); err != nil {
				_ = writef(stderr, "error writing memory profile: %v\n", err)
			}
		}()
	}

	expr, err := xpath.Compile(expression, xpath.WithNamespaces(namespaces))
	if err != nil {
		if writeErr := writef(stderr, "error compiling expression: %v\n", err); writeErr != nil {
			return 1
		}
		return 2
	}

	doc, err := parseDocument(docPath, *htmlInput)
	if err != nil {
		if writeErr := writef(stderr, "error parsing document: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	result, err := expr.Evaluate(doc)
	if err != nil {
		if writeErr := writef(stderr, "error evaluating: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	if result.Type() != xpath.NodeSetResult {
		if err := writeln(stdout, result.String()); err != nil {
			return 1
		}
		return 0
	}

	nodes := result.Nodes()
	if len(nodes) == 0 {
		if err := writeln(stderr, "no matches"); err != nil {
			return 1
		}
		return 1
	}
	for _, n := range nodes {
		out := xpath.OutputXML(n)
		if *textOutput {
			out = n.StringValue()
		}
		if err := writeln(stdout, out); err != nil {
			return 1
		}
	}
	return 0
}

func parseDocument(path string, asHTML bool) (*xpath.Node, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	if asHTML {
		return htmltree.Parse(r)
	}
	return xpath.Parse(r)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

func startCPUProfile(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile %s: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return nil, fmt.Errorf("start cpu profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return nil, fmt.Errorf("start cpu profile %s: %w", path, err)
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			return fmt.Errorf("close cpu profile %s: %w", path, err)
		}
		return nil
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mem profile %s: %w", path, err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("write mem profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return fmt.Errorf("write mem profile %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close mem profile %s: %w", path, err)
	}
	return nil
}
