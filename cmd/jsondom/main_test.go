package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lattice-substrate/jsondom/domerr"
)

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestFmtCompactFromStdin(t *testing.T) {
	code, stdout, stderr := runCLI(t, `{ "b" : 2, "a" : 1 }`, "fmt")
	if code != exitSuccess {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
	if stdout != "{\"b\":2,\"a\":1}\n" {
		t.Fatalf("stdout %q", stdout)
	}
}

func TestFmtPrettyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte(`[1,{"a":true}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, "", "fmt", "--pretty", path)
	if code != exitSuccess {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
	want := `[
    1,
    {
        "a": true
    }
]
`
	if stdout != want {
		t.Fatalf("stdout:\n%s", stdout)
	}
}

func TestFmtComments(t *testing.T) {
	in := "{\"a\": 1 /* one */}"
	code, stdout, _ := runCLI(t, in, "fmt", "--comments")
	if code != exitSuccess || stdout != "{\"a\":1}\n" {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
	code, _, stderr := runCLI(t, in, "fmt")
	if code != exitInvalid {
		t.Fatalf("comments should fail the strict parse, exit %d stderr %q", code, stderr)
	}
}

func TestFmtSlashes(t *testing.T) {
	code, stdout, _ := runCLI(t, `"a/b"`, "fmt")
	if code != exitSuccess || stdout != "\"a\\/b\"\n" {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
	code, stdout, _ = runCLI(t, `"a/b"`, "fmt", "--raw-slashes")
	if code != exitSuccess || stdout != "\"a/b\"\n" {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
}

func TestFmtReportsClassifiedParseErrors(t *testing.T) {
	code, _, stderr := runCLI(t, `{"a":}`, "fmt")
	if code != exitInvalid {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stderr, "UNEXPECTED_TOKEN") || !strings.Contains(stderr, "at byte") {
		t.Fatalf("stderr %q", stderr)
	}

	code, _, stderr = runCLI(t, `{"a":1,"a":2}`, "fmt")
	if code != exitInvalid || !strings.Contains(stderr, "DUPLICATE_KEY") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
}

func TestFmtMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	code, _, stderr := runCLI(t, "", "fmt", path)
	if code != exitInvalid || !strings.Contains(stderr, "reading input") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
}

func TestVerify(t *testing.T) {
	code, stdout, stderr := runCLI(t, `{"a":1}`, "verify")
	if code != exitSuccess || stdout != "" || stderr != "ok\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	code, _, stderr = runCLI(t, `{"a":1}`, "verify", "--quiet")
	if code != exitSuccess || stderr != "" {
		t.Fatalf("quiet: exit %d, stderr %q", code, stderr)
	}

	code, _, _ = runCLI(t, `[1,`, "verify")
	if code != exitInvalid {
		t.Fatalf("invalid input: exit %d", code)
	}

	code, _, _ = runCLI(t, "// note\n{\"a\":1}", "verify", "--comments")
	if code != exitSuccess {
		t.Fatalf("comments: exit %d", code)
	}
}

func TestGet(t *testing.T) {
	doc := `{"server":{"host":"db1","ports":[80,443]}}`

	code, stdout, stderr := runCLI(t, doc, "get", "--path", "server.host")
	if code != exitSuccess || stdout != "\"db1\"\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	code, stdout, _ = runCLI(t, doc, "get", "--path", "server.ports", "--pretty")
	want := `[
    80,
    443
]
`
	if code != exitSuccess || stdout != want {
		t.Fatalf("exit %d, stdout:\n%s", code, stdout)
	}

	code, _, stderr = runCLI(t, doc, "get", "--path", "server.nope")
	if code != exitInvalid || !strings.Contains(stderr, "no value at path") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}

	code, _, stderr = runCLI(t, `[1,2]`, "get", "--path", "a")
	if code != exitInvalid || !strings.Contains(stderr, "not an object") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
}

func TestGetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte(`{"a":{"b":42}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, "", "get", "--path", "a.b", path)
	if code != exitSuccess || stdout != "42\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, stdout, stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	if code != exitInvalid || !strings.Contains(stderr, "missing command") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}

	code, _, _ = runCLI(t, "", "bogus")
	if code != exitInvalid {
		t.Fatalf("unknown command: exit %d", code)
	}

	code, _, _ = runCLI(t, "", "fmt", "--wat")
	if code != exitInvalid {
		t.Fatalf("unknown flag: exit %d", code)
	}

	code, _, _ = runCLI(t, "", "get")
	if code != exitInvalid {
		t.Fatalf("missing required --path: exit %d", code)
	}
}

func TestHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--help")
	if code != exitSuccess || !strings.Contains(stdout, "jsondom") {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, "", "fmt", "--help")
	if code != exitSuccess || !strings.Contains(stdout, "--pretty") {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
}

func TestWriteClassifiedErrorWrapped(t *testing.T) {
	inner := domerr.New(domerr.InvalidUTF8, 3, "bad byte")
	err := fmt.Errorf("outer: %w", inner)
	var stderr bytes.Buffer
	code := writeClassifiedError(&stderr, err)
	if code != domerr.InvalidUTF8.ExitCode() {
		t.Fatalf("expected exit %d, got %d", domerr.InvalidUTF8.ExitCode(), code)
	}
}

func TestWriteClassifiedErrorFallback(t *testing.T) {
	err := fmt.Errorf("unclassified failure")
	var stderr bytes.Buffer
	code := writeClassifiedError(&stderr, err)
	if code != domerr.InternalError.ExitCode() {
		t.Fatalf("expected exit %d, got %d", domerr.InternalError.ExitCode(), code)
	}
}

func TestReadBounded(t *testing.T) {
	if _, err := readBounded(strings.NewReader("0123456789"), 5); err == nil {
		t.Fatal("expected size error")
	}
	data, err := readBounded(strings.NewReader("0123456789"), 10)
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("got %q, %v", data, err)
	}
}
