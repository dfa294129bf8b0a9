package domtree

import "sync"

// Allocator supplies storage for tree nodes and working byte buffers. Every
// operation that creates or releases nodes takes one explicitly; passing nil
// selects Heap. A nil return from NewValue or NewBytes signals exhaustion,
// which callers surface as an allocation failure.
//
// Nodes handed back through Free have already been cleared, so an
// implementation may recycle them as-is.
type Allocator interface {
	NewValue() *Value
	NewBytes(n int) []byte
	Free(v *Value)
	FreeBytes(b []byte)
}

// Heap allocates from the Go heap and leaves reclamation to the collector.
type Heap struct{}

func (Heap) NewValue() *Value      { return new(Value) }
func (Heap) NewBytes(n int) []byte { return make([]byte, n) }
func (Heap) Free(*Value)           {}
func (Heap) FreeBytes([]byte)      {}

// Pool recycles nodes and buffers through sync.Pool. Useful for parse-heavy
// workloads where trees are short-lived; released subtrees feed later parses.
type Pool struct {
	values sync.Pool
	bufs   sync.Pool
}

func NewPool() *Pool {
	p := &Pool{}
	p.values.New = func() any { return new(Value) }
	p.bufs.New = func() any { return new([]byte) }
	return p
}

func (p *Pool) NewValue() *Value { return p.values.Get().(*Value) }

func (p *Pool) NewBytes(n int) []byte {
	b := p.bufs.Get().(*[]byte)
	if cap(*b) < n {
		*b = make([]byte, n)
	}
	return (*b)[:n]
}

func (p *Pool) Free(v *Value) {
	if v != nil {
		p.values.Put(v)
	}
}

func (p *Pool) FreeBytes(b []byte) {
	if cap(b) == 0 {
		return
	}
	p.bufs.Put(&b)
}

func norm(a Allocator) Allocator {
	if a == nil {
		return Heap{}
	}
	return a
}
