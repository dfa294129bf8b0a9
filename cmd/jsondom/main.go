// Command jsondom parses, formats, and queries JSON documents.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/lattice-substrate/jsondom/domerr"
	"github.com/lattice-substrate/jsondom/domparse"
	"github.com/lattice-substrate/jsondom/domtree"
	"github.com/lattice-substrate/jsondom/domwrite"
)

const (
	exitSuccess  = 0
	exitInvalid  = 2
	exitInternal = 10
)

// maxInputSize bounds how much is read from a file or stdin.
const maxInputSize = 64 << 20

type fmtCmd struct {
	Pretty     bool   `help:"indent the output with four spaces per level"`
	Comments   bool   `help:"strip // and /* */ comments before parsing"`
	RawSlashes bool   `arg:"--raw-slashes" help:"do not escape / in strings"`
	File       string `arg:"positional" default:"-" help:"input file, - for stdin"`
}

type verifyCmd struct {
	Comments bool   `help:"strip // and /* */ comments before parsing"`
	Quiet    bool   `arg:"-q,--quiet" help:"suppress the ok message"`
	File     string `arg:"positional" default:"-" help:"input file, - for stdin"`
}

type getCmd struct {
	Path   string `arg:"--path,required" help:"dotted member path, e.g. server.host"`
	Pretty bool   `help:"indent the output with four spaces per level"`
	File   string `arg:"positional" default:"-" help:"input file, - for stdin"`
}

type cli struct {
	Fmt    *fmtCmd    `arg:"subcommand:fmt" help:"parse a document and print it back"`
	Verify *verifyCmd `arg:"subcommand:verify" help:"parse a document and report whether it is valid"`
	Get    *getCmd    `arg:"subcommand:get" help:"print the value at a dotted path"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var c cli
	p, err := arg.NewParser(arg.Config{Program: "jsondom"}, &c)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: %v\n", err)
	}

	switch err := p.Parse(args); {
	case errors.Is(err, arg.ErrHelp):
		if werr := p.WriteHelpForSubcommand(stdout, p.SubcommandNames()...); werr != nil {
			return exitInternal
		}
		return exitSuccess
	case err != nil:
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}

	switch {
	case c.Fmt != nil:
		return cmdFmt(c.Fmt, stdin, stdout, stderr)
	case c.Verify != nil:
		return cmdVerify(c.Verify, stdin, stderr)
	case c.Get != nil:
		return cmdGet(c.Get, stdin, stdout, stderr)
	default:
		if err := writeLine(stderr, "error: missing command (fmt, verify, or get)"); err != nil {
			return exitInternal
		}
		p.WriteUsage(stderr)
		return exitInvalid
	}
}

func cmdFmt(c *fmtCmd, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	input, err := readInput(c.File, stdin)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: reading input: %v\n", err)
	}

	v, err := parseInput(input, c.Comments)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	out, err := domwrite.SerializeWithOptions(v, &domwrite.Options{
		Pretty:     c.Pretty,
		RawSlashes: c.RawSlashes,
	})
	if err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: serialization failed: %v\n", err)
	}

	if _, err := stdout.Write(out); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: writing output: %v\n", err)
	}
	if err := writef(stdout, "\n"); err != nil {
		return exitInternal
	}
	return exitSuccess
}

func cmdVerify(c *verifyCmd, stdin io.Reader, stderr io.Writer) int {
	input, err := readInput(c.File, stdin)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: reading input: %v\n", err)
	}

	if _, err := parseInput(input, c.Comments); err != nil {
		return writeClassifiedError(stderr, err)
	}

	if !c.Quiet {
		if err := writeLine(stderr, "ok"); err != nil {
			return exitInternal
		}
	}
	return exitSuccess
}

func cmdGet(c *getCmd, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	input, err := readInput(c.File, stdin)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: reading input: %v\n", err)
	}

	v, err := parseInput(input, false)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	obj := v.Object()
	if obj == nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: top-level value is not an object\n")
	}
	target := obj.GetPath(c.Path)
	if target == nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: no value at path %q\n", c.Path)
	}

	out, err := domwrite.SerializeWithOptions(target, &domwrite.Options{Pretty: c.Pretty})
	if err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: serialization failed: %v\n", err)
	}

	if _, err := stdout.Write(out); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: writing output: %v\n", err)
	}
	if err := writef(stdout, "\n"); err != nil {
		return exitInternal
	}
	return exitSuccess
}

func parseInput(data []byte, comments bool) (*domtree.Value, error) {
	if comments {
		return domparse.ParseWithComments(data)
	}
	return domparse.Parse(data)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return readBounded(stdin, maxInputSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := readBounded(f, maxInputSize)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return data, nil
}

func readBounded(r io.Reader, maxSize int) ([]byte, error) {
	lr := io.LimitReader(r, int64(maxSize)+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxSize {
		return nil, fmt.Errorf("input exceeds maximum size %d bytes", maxSize)
	}
	return data, nil
}

// writeClassifiedError reports err on stderr and returns the exit code for
// its failure class.
func writeClassifiedError(stderr io.Writer, err error) int {
	if werr := writef(stderr, "error: %v\n", err); werr != nil {
		return exitInternal
	}
	return domerr.ClassOf(err).ExitCode()
}

func writeErrorAndReturn(stderr io.Writer, code int, format string, args ...any) int {
	if err := writef(stderr, format, args...); err != nil {
		return exitInternal
	}
	return code
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
