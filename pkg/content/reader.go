package content

import (
	"errors"
	"io"
)

// ErrReaderClosed is returned by Read after Close.
var ErrReaderClosed = errors.New("content: reader closed")

// Reader drains a signal chain as an io.ReadCloser. It walks statically
// known successors via Next and calls pull whenever the successor is
// unknown (or the persistent Empty sentinel). Error signals surface their
// cause as the read error; EOF surfaces as io.EOF; trailing fields are
// captured and available from Trailers after the stream ends. Each chunk
// is released as soon as it is fully consumed.
type Reader struct {
	cur      Content
	buf      []byte
	pull     func() Content
	trailers map[string][]string
	err      error
}

// NewReader returns a Reader over the chain starting at c. Either argument
// may be nil: a nil c starts with a pull, and a nil pull treats an unknown
// successor as end of stream.
func NewReader(c Content, pull func() Content) *Reader {
	r := &Reader{pull: pull}
	r.set(c)
	return r
}

func (r *Reader) Read(p []byte) (int, error) {
	for {
		if r.err != nil {
			return 0, r.err
		}
		if len(r.buf) > 0 {
			n := copy(p, r.buf)
			r.buf = r.buf[n:]
			return n, nil
		}
		r.advance()
	}
}

// Trailers returns the trailing header fields seen on the stream, or nil
// if none have arrived yet. Valid once Read has returned io.EOF.
func (r *Reader) Trailers() map[string][]string { return r.trailers }

// Close releases the current signal and fails subsequent reads.
func (r *Reader) Close() error {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	r.buf = nil
	if r.err == nil || r.err == io.EOF {
		r.err = ErrReaderClosed
	}
	return nil
}

// advance moves past the exhausted current signal, pulling from the
// producer when the chain has no statically known successor.
func (r *Reader) advance() {
	c := r.cur
	if c == nil {
		r.set(r.pullNext())
		return
	}
	switch c.Kind() {
	case KindEOF:
		r.err = io.EOF
	case KindError:
		r.err = Cause(c)
	case KindTrailers:
		r.trailers = Fields(c)
		r.set(c.Next())
	case KindChunk:
		c.Release()
		next := c.Next()
		if next == nil || next == c {
			next = r.pullNext()
		}
		r.set(next)
	}
}

func (r *Reader) pullNext() Content {
	if r.pull == nil {
		return EOF
	}
	if c := r.pull(); c != nil {
		return c
	}
	return EOF
}

func (r *Reader) set(c Content) {
	r.cur = c
	if c != nil {
		r.buf = c.Bytes()
	}
}

// Generate returns a producer that reads chunks of at most chunkSize bytes
// from src and terminates the chain with EOF, or with an Error signal when
// src fails. A zero or negative chunkSize uses 32 KiB. A read that makes
// no progress yields the Empty sentinel so callers can retry.
func Generate(src io.Reader, chunkSize int) func() Content {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	done := false
	var pending error
	return func() Content {
		if done {
			if pending != nil {
				err := pending
				pending = nil
				return NewError(err)
			}
			return EOF
		}
		buf := make([]byte, chunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			if err == io.EOF {
				done = true
				return NewChunk(buf[:n], true)
			}
			if err != nil {
				// Deliver the bytes first; the failure follows as its
				// own signal.
				done = true
				pending = err
			}
			return NewChunk(buf[:n], false)
		}
		if err == nil {
			return Empty
		}
		done = true
		if err == io.EOF {
			return EOF
		}
		return NewError(err)
	}
}
