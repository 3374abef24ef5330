// Package comm implements the out-of-band status channel that accompanies a
// reliable descriptor.
//
// A channel is one end of an AF_UNIX SOCK_SEQPACKET socket pair. Sequenced
// packets keep message boundaries, so a status frame is always written and
// read as a single unit. Both ends are non-blocking: reading before the peer
// has reported anything returns immediately with an unknown status.
//
// All I/O here is best-effort. Failures are logged and degrade to a Dead
// status (reads) or a no-op (writes); they are never returned to the close
// path that triggered them.
package comm
