// Package content models an HTTP message body as a chain of self-describing
// signals. Byte chunks, clean end-of-stream, trailing header fields, and
// failures are unified under one value type, so readers, writers, and filters
// can compose and re-terminate body streams without copying and without
// losing end-of-stream or error semantics.
package content

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Kind identifies the variant of a Content signal. The set is closed:
// exhaustive switches over Kind cover every signal this package can produce.
type Kind uint8

const (
	// KindChunk is an ordinary byte range; more signals may follow.
	KindChunk Kind = iota
	// KindEOF is the clean end of the stream.
	KindEOF
	// KindError terminates the stream with a failure cause.
	KindError
	// KindTrailers terminates the stream with trailing header fields.
	KindTrailers
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindEOF:
		return "eof"
	case KindError:
		return "error"
	case KindTrailers:
		return "trailers"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Content is one signal in a body stream. Implementations are closed to this
// package; consumers branch on Kind or on the exported concrete types.
//
// Next lets a consumer walk the statically known part of a chain without the
// producer materializing all of it: terminals return themselves (Trailers
// returns EOF), a final chunk returns EOF, the persistent Empty sentinel
// returns itself, and nil means the successor is unknown and the consumer
// must ask the producer for more.
type Content interface {
	// Kind reports which variant this signal is.
	Kind() Kind
	// Bytes returns the unread byte range, or nil for terminal signals.
	Bytes() []byte
	// Last reports whether no further signal follows this one.
	Last() bool
	// Next returns the following signal if statically known, or nil.
	Next() Content
	// Release releases any buffer owned by this signal. It is safe to call
	// more than once; the underlying resource is released exactly once.
	Release()

	sealed()
}

// ErrUnknown is the substitute cause for an Error signal constructed
// without one.
var ErrUnknown = errors.New("unknown i/o failure")

// EOF is the singleton signal for a clean end of stream.
var EOF Content = eof{}

type eof struct{}

func (eof) Kind() Kind      { return KindEOF }
func (eof) Bytes() []byte   { return nil }
func (eof) Last() bool      { return true }
func (e eof) Next() Content { return e }
func (eof) Release()        {}
func (eof) sealed()         {}

func (eof) String() string { return "EOF" }

// Chunk carries a byte range of the body. A chunk may be marked last, in
// which case its successor is EOF, or grafted onto a continuation with From.
type Chunk struct {
	data       []byte
	pos        int
	last       bool
	persistent bool
	release    func()
	released   sync.Once
}

// Empty is a persistent zero-length chunk: its successor is itself. It is
// returned by producers that have no bytes available right now but are not
// done, so consumers can distinguish "ask again" from end of stream.
var Empty Content = &Chunk{persistent: true}

// NewChunk returns a chunk over data, optionally marked as the final signal
// of the stream. The chunk does not copy data.
func NewChunk(data []byte, last bool) *Chunk {
	return &Chunk{data: data, last: last}
}

// NewChunkWithRelease is NewChunk for buffers with an owner: release is
// called exactly once, on the first Release of the chunk, typically to
// return the buffer to a pool.
func NewChunkWithRelease(data []byte, last bool, release func()) *Chunk {
	return &Chunk{data: data, last: last, release: release}
}

func (c *Chunk) Kind() Kind { return KindChunk }

// Bytes returns the unread remainder of the chunk's buffer.
func (c *Chunk) Bytes() []byte { return c.data[c.pos:] }

func (c *Chunk) Last() bool { return c.last }

func (c *Chunk) Next() Content {
	if c.persistent {
		return c
	}
	if c.last {
		return EOF
	}
	return nil
}

// Release invokes the chunk's release hook at most once.
func (c *Chunk) Release() {
	c.released.Do(func() {
		if c.release != nil {
			c.release()
		}
	})
}

func (c *Chunk) sealed() {}

// Remaining returns the number of unread bytes in the chunk.
func (c *Chunk) Remaining() int { return len(c.data) - c.pos }

// HasRemaining reports whether any unread bytes remain.
func (c *Chunk) HasRemaining() bool { return c.Remaining() > 0 }

// Fill copies unread bytes into dst, advances the read position, and
// returns the number of bytes copied.
func (c *Chunk) Fill(dst []byte) int {
	n := copy(dst, c.data[c.pos:])
	c.pos += n
	return n
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk[%d, last=%t]", c.Remaining(), c.last)
}

// Error is a terminal signal carrying the failure that ended the stream.
type Error struct {
	cause error
}

// NewError returns an Error signal. A nil cause is replaced with ErrUnknown
// rather than propagated.
func NewError(cause error) *Error {
	if cause == nil {
		cause = ErrUnknown
	}
	return &Error{cause: cause}
}

func (e *Error) Kind() Kind    { return KindError }
func (e *Error) Bytes() []byte { return nil }
func (e *Error) Last() bool    { return true }
func (e *Error) Next() Content { return e }
func (e *Error) Release()      {}
func (e *Error) sealed()       {}

// Cause returns the failure that ended the stream. Never nil.
func (e *Error) Cause() error { return e.cause }

func (e *Error) String() string { return e.cause.Error() }

// Trailers is a terminal signal carrying trailing header fields. Its
// successor is always EOF, regardless of any continuation requested when
// composing.
type Trailers struct {
	fields http.Header
}

// NewTrailers returns a Trailers signal over fields.
func NewTrailers(fields http.Header) *Trailers {
	return &Trailers{fields: fields}
}

func (t *Trailers) Kind() Kind    { return KindTrailers }
func (t *Trailers) Bytes() []byte { return nil }
func (t *Trailers) Last() bool    { return true }
func (t *Trailers) Next() Content { return EOF }
func (t *Trailers) Release()      {}
func (t *Trailers) sealed()       {}

// Fields returns the trailing header fields.
func (t *Trailers) Fields() http.Header { return t.fields }

func (t *Trailers) String() string { return "TRAILERS" }

// Cause returns the cause of an Error signal, or nil for any other signal.
func Cause(c Content) error {
	if e, ok := c.(*Error); ok {
		return e.Cause()
	}
	return nil
}

// Fields returns the fields of a Trailers signal, or nil for any other
// signal.
func Fields(c Content) http.Header {
	if t, ok := c.(*Trailers); ok {
		return t.Fields()
	}
	return nil
}

// From grafts next onto the open end of c's successor chain. If c's chain
// already terminates exactly in next, c is returned unchanged, so composing
// a chain with its own natural continuation allocates nothing. Grafting
// past a terminal signal returns the terminal unchanged: a closed chain
// cannot be reopened.
//
// Each grafted level strictly shortens the unknown suffix of the chain, so
// the successor chase terminates.
func From(c, next Content) Content {
	if next == nil || c.Next() == next {
		return c
	}
	if c.Kind() != KindChunk || c.Last() {
		return c
	}
	return &grafted{under: c, next: next}
}

// grafted is a chunk view whose successor chain continues in next once the
// underlying chain runs out. The buffer stays owned by under; Release
// forwards to it exactly once per grafted instance.
type grafted struct {
	under    Content
	next     Content
	released sync.Once
}

func (g *grafted) Kind() Kind    { return g.under.Kind() }
func (g *grafted) Bytes() []byte { return g.under.Bytes() }
func (g *grafted) Last() bool    { return g.under.Last() }

func (g *grafted) Next() Content {
	n := g.under.Next()
	if n == nil || n == g.under {
		return g.next
	}
	return From(n, g.next)
}

func (g *grafted) Release() {
	g.released.Do(g.under.Release)
}

func (g *grafted) sealed() {}

func (g *grafted) String() string {
	return fmt.Sprintf("grafted[%v]", g.under)
}
