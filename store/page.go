package store

import "fmt"

// Anchor is a resumable position in the key enumeration of an object.
// The zero value starts at the first key.
type Anchor struct {
	last []byte
	eof  bool
}

// EOF reports whether the enumeration is exhausted.
func (a *Anchor) EOF() bool {
	return a.eof
}

// Reset rewinds the anchor to the first key.
func (a *Anchor) Reset() {
	a.last = a.last[:0]
	a.eof = false
}

func (a *Anchor) started() bool {
	return len(a.last) > 0
}

func (a *Anchor) advance(last []byte) {
	a.last = append(a.last[:0], last...)
}

// KeyDesc locates one key inside a Page buffer.
type KeyDesc struct {
	Offset int
	Len    int
}

// Page holds the result of one List call: up to Cap() key descriptors and
// the concatenated key bytes they point into.
type Page struct {
	descs []KeyDesc
	buf   []byte
	max   int
}

func NewPage(maxEntries int) *Page {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Page{
		descs: make([]KeyDesc, 0, maxEntries),
		max:   maxEntries,
	}
}

// Cap returns the maximum number of keys a single List call may return.
func (p *Page) Cap() int {
	return p.max
}

// Len returns the number of keys in the page.
func (p *Page) Len() int {
	return len(p.descs)
}

// Full reports whether the page cannot take more keys.
func (p *Page) Full() bool {
	return len(p.descs) >= p.max
}

// Reset empties the page, keeping its buffers.
func (p *Page) Reset() {
	clear(p.buf)
	p.buf = p.buf[:0]
	p.descs = p.descs[:0]
}

// Descs returns the key descriptors of the page.
func (p *Page) Descs() []KeyDesc {
	return p.descs
}

// Key returns the i-th key. The slice aliases the page buffer and is only
// valid until the next Reset.
func (p *Page) Key(i int) ([]byte, error) {
	if i < 0 || i >= len(p.descs) {
		return nil, fmt.Errorf("key index %d out of range [0, %d)", i, len(p.descs))
	}
	d := p.descs[i]
	if d.Offset < 0 || d.Len < 0 || d.Offset+d.Len > len(p.buf) {
		return nil, fmt.Errorf("key descriptor %d (offset %d, len %d) exceeds buffer of %d bytes", i, d.Offset, d.Len, len(p.buf))
	}
	return p.buf[d.Offset : d.Offset+d.Len], nil
}

// truncate drops the page content without clearing the buffer.
func (p *Page) truncate() {
	p.buf = p.buf[:0]
	p.descs = p.descs[:0]
}

func (p *Page) add(key []byte) {
	p.descs = append(p.descs, KeyDesc{Offset: len(p.buf), Len: len(key)})
	p.buf = append(p.buf, key...)
}
