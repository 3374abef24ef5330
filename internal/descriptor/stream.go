//go:build linux

package descriptor

import (
	"fmt"
	"io"
)

// Reader reads from a Descriptor and closes it on Close. When the
// descriptor can detect errors, reaching EOF checks the peer status and
// returns the remote error, if any, in place of io.EOF.
type Reader struct {
	d *Descriptor
}

// NewReader returns an auto-closing reader over d.
func NewReader(d *Descriptor) *Reader {
	return &Reader{d: d}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fd, err := r.d.Fd()
	if err != nil {
		return 0, err
	}
	n, err := readFd(fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Only check on EOF to keep reads cheap.
		if r.d.CanDetectErrors() {
			if err := r.d.CheckError(); err != nil {
				return 0, err
			}
		}
		return 0, io.EOF
	}
	return n, nil
}

// Close closes the underlying descriptor.
func (r *Reader) Close() error {
	return r.d.Close()
}

// Writer writes to a Descriptor and closes it on Close.
type Writer struct {
	d *Descriptor
}

// NewWriter returns an auto-closing writer over d.
func NewWriter(d *Descriptor) *Writer {
	return &Writer{d: d}
}

func (w *Writer) Write(p []byte) (int, error) {
	fd, err := w.d.Fd()
	if err != nil {
		return 0, err
	}
	written := 0
	for written < len(p) {
		n, err := writeFd(fd, p[written:])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Close closes the underlying descriptor, reporting OK to the peer.
func (w *Writer) Close() error {
	return w.d.Close()
}

// CloseWithError closes the underlying descriptor, reporting err to the
// peer. A nil err is a plain Close. An err with an empty message is reported
// by its type name.
func (w *Writer) CloseWithError(err error) error {
	if err == nil {
		return w.d.Close()
	}
	msg := err.Error()
	if msg == "" {
		msg = fmt.Sprintf("%T", err)
	}
	return w.d.CloseWithError(msg)
}
