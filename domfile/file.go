// Package domfile moves JSON documents between domtree values and the
// filesystem.
//
// Reads go through the caller's allocator so file buffers follow the same
// storage discipline as tree nodes. WriteValueFile truncates the target in
// place; WriteFileAtomic stages a temp file in the target directory, syncs
// it, and renames over the destination, so readers of the path never
// observe a partial document.
package domfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/lattice-substrate/jsondom/domerr"
	"github.com/lattice-substrate/jsondom/domparse"
	"github.com/lattice-substrate/jsondom/domtree"
	"github.com/lattice-substrate/jsondom/domwrite"
)

// ReadFile reads the whole file at path into a buffer from a. A nil
// allocator reads onto the Go heap. IO failures carry class InternalIO.
func ReadFile(a domtree.Allocator, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domerr.Wrap(domerr.InternalIO, -1, "open "+path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, domerr.Wrap(domerr.InternalIO, -1, "stat "+path, err)
	}
	size := int(info.Size())

	if a == nil {
		a = domtree.Heap{}
	}
	buf := a.NewBytes(size)
	if buf == nil && size > 0 {
		return nil, domerr.New(domerr.AllocFailed, -1, "file buffer")
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		a.FreeBytes(buf)
		return nil, domerr.Wrap(domerr.InternalIO, -1, "read "+path, err)
	}
	return buf, nil
}

// ParseFile reads and parses the JSON document at path.
func ParseFile(path string) (*domtree.Value, error) {
	return ParseFileWithOptions(path, nil)
}

// ParseFileWithOptions reads path through the options allocator, parses it,
// and releases the read buffer before returning.
func ParseFileWithOptions(path string, o *domparse.Options) (*domtree.Value, error) {
	data, a, err := readForParse(path, o)
	if err != nil {
		return nil, err
	}
	v, perr := domparse.ParseWithOptions(data, o)
	a.FreeBytes(data)
	return v, perr
}

// ParseFileWithComments is ParseFile with // and /* */ comments stripped.
func ParseFileWithComments(path string) (*domtree.Value, error) {
	return ParseFileWithCommentsOptions(path, nil)
}

// ParseFileWithCommentsOptions is ParseFileWithOptions with comments stripped.
func ParseFileWithCommentsOptions(path string, o *domparse.Options) (*domtree.Value, error) {
	data, a, err := readForParse(path, o)
	if err != nil {
		return nil, err
	}
	v, perr := domparse.ParseWithCommentsOptions(data, o)
	a.FreeBytes(data)
	return v, perr
}

func readForParse(path string, o *domparse.Options) ([]byte, domtree.Allocator, error) {
	a := domtree.Allocator(domtree.Heap{})
	if o != nil && o.Alloc != nil {
		a = o.Alloc
	}
	data, err := ReadFile(a, path)
	if err != nil {
		return nil, nil, err
	}
	return data, a, nil
}

// WriteValueFile serializes v compactly and writes it to path, truncating
// any existing file.
func WriteValueFile(path string, v *domtree.Value) error {
	return WriteValueFileWithOptions(path, v, nil)
}

// WriteValueFilePretty is WriteValueFile with pretty output.
func WriteValueFilePretty(path string, v *domtree.Value) error {
	return WriteValueFileWithOptions(path, v, &domwrite.Options{Pretty: true})
}

// WriteValueFileWithOptions serializes v under o and writes it to path.
func WriteValueFileWithOptions(path string, v *domtree.Value, o *domwrite.Options) error {
	data, a, err := serializeForWrite(v, o)
	if err != nil {
		return err
	}
	defer a.FreeBytes(data)

	f, err := os.Create(path)
	if err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "create "+path, err)
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "write "+path, werr)
	}
	if cerr != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "close "+path, cerr)
	}
	return nil
}

// WriteValueFileAtomic serializes v under o and writes it through
// WriteFileAtomic.
func WriteValueFileAtomic(path string, v *domtree.Value, o *domwrite.Options) error {
	data, a, err := serializeForWrite(v, o)
	if err != nil {
		return err
	}
	defer a.FreeBytes(data)
	return WriteFileAtomic(path, data)
}

func serializeForWrite(v *domtree.Value, o *domwrite.Options) ([]byte, domtree.Allocator, error) {
	a := domtree.Allocator(domtree.Heap{})
	if o != nil && o.Alloc != nil {
		a = o.Alloc
	}
	data, err := domwrite.SerializeWithOptions(v, o)
	if err != nil {
		return nil, nil, err
	}
	return data, a, nil
}

// WriteFileAtomic writes data to path via a temp file in the same
// directory: write, fsync, close, rename. On failure the temp file is
// removed and the target is left untouched. The rename is atomic when the
// temp file and target share a mount.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".jsondom-*.tmp")
	if err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "create temp file", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return domerr.Wrap(domerr.InternalIO, -1, "rename temp to final", err)
	}
	success = true

	syncDir(dir)
	return nil
}

// syncDir fsyncs the directory so a completed rename survives a crash.
// Errors are ignored; durability here is best effort.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
