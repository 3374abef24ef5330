// Package server exposes a small HTTP surface next to a process that owns
// descriptors:
//
//	GET /healthz        liveness plus the open descriptor count
//	GET /descriptors    open descriptors, oldest first
//	GET /metrics        Prometheus exposition
//	GET /metrics/json   metrics snapshot as JSON
package server
