// Package main is fdprobe, a self-test for reliable descriptors across a
// process boundary.
//
// The parent creates a reliable pipe, starts a copy of itself with the
// write end and its status channel as fds 3 and 4, drains the read end and
// reports how the child closed it:
//
//	ok      child closed cleanly
//	error   child closed with --error
//	detach  child detached the descriptor instead of closing it
//	crash   child exited without closing (peer reads DEAD)
//
// Usage:
//
//	fdprobe --mode error --error "disk full" --payload 4096
//	fdprobe --mode crash --metrics-addr :9090 --linger 30s
//
// The exit code is 0 when the observed status matches --mode.
//
// Configuration comes from FDCHANNEL_* environment variables; flags
// override them.
package main
