// Package descriptor provides Descriptor, an owned OS file descriptor that can
// optionally tell its peer why it was closed.
//
// A plain descriptor behaves like a file handle with explicit, idempotent
// close. A reliable descriptor (CreateReliablePipe, CreateReliableSocketPair,
// FromFdWithListener) also carries a private status channel. Closing it sends
// one status frame to the peer before the primary descriptor is released, so
// the peer can tell a clean EOF from an application error, a crash, a leak or
// a detach:
//
//	r, w, _ := descriptor.CreateReliablePipe()
//	go func() {
//		defer w.Close()
//		if err := produce(w); err != nil {
//			w.CloseWithError(err.Error())
//		}
//	}()
//	reader := descriptor.NewReader(r)
//	_, err := io.ReadAll(reader) // remote error surfaces here instead of EOF
//
// Status delivery is best-effort. Close, CloseWithError and Detach never fail
// because of the status channel.
package descriptor
