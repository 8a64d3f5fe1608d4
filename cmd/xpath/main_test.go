package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRunWithArgs(t *testing.T) {
	catalog := writeFixture(t, "catalog.xml", `<catalog>
  <item sku="A-1"><name>Widget</name><price>4.50</price></item>
  <item sku="A-2"><name>Gadget</name><price>12.00</price></item>
</catalog>`)
	feed := writeFixture(t, "feed.xml", `<feed xmlns:a="urn:atom"><a:title>News</a:title></feed>`)
	page := writeFixture(t, "page.html", `<p>hello <B>world</B>`)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
	}{
		{
			name:       "node set as xml",
			args:       []string{"//item[price > 5]/name", catalog},
			wantCode:   0,
			wantStdout: "<name>Gadget</name>\n",
		},
		{
			name:       "node set as text",
			args:       []string{"--text", "//item/@sku", catalog},
			wantCode:   0,
			wantStdout: "A-1\nA-2\n",
		},
		{
			name:       "number result",
			args:       []string{"count(//item)", catalog},
			wantCode:   0,
			wantStdout: "2\n",
		},
		{
			name:       "namespace binding",
			args:       []string{"--ns", "atom=urn:atom", "--text", "//atom:title", feed},
			wantCode:   0,
			wantStdout: "News\n",
		},
		{
			name:       "html input",
			args:       []string{"--html", "--text", "//b", page},
			wantCode:   0,
			wantStdout: "world\n",
		},
		{
			name:     "no matches",
			args:     []string{"//missing", catalog},
			wantCode: 1,
		},
		{
			name:     "compile error",
			args:     []string{"//item[", catalog},
			wantCode: 2,
		},
		{
			name:     "bad namespace flag",
			args:     []string{"--ns", "atom", "//a", catalog},
			wantCode: 2,
		},
		{
			name:     "missing arguments",
			args:     []string{"//item"},
			wantCode: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			got := runWithArgs(tt.args, &stdout, &stderr)
			if got != tt.wantCode {
				t.Fatalf("runWithArgs() = %d, want %d (stderr: %s)", got, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && stdout.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
		})
	}
}

func TestRunWithArgs_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if got := runWithArgs([]string{"//a", "does-not-exist.xml"}, &stdout, &stderr); got != 1 {
		t.Fatalf("runWithArgs() = %d, want 1", got)
	}
	if !strings.Contains(stderr.String(), "error parsing document") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
