/*
Package monitoring provides Prometheus metrics for descriptors and their
status channels.

# Overview

Metrics implements descriptor.Recorder, so passing it with
descriptor.WithRecorder counts every descriptor opened, closed and leaked,
and every status frame written, read or dropped.

# Metrics

  - fdchannel_descriptors_open{kind}
  - fdchannel_descriptors_total{kind}
  - fdchannel_descriptors_leaked_total{kind}
  - fdchannel_status_written_total{status}
  - fdchannel_status_read_total{status}
  - fdchannel_status_write_failures_total
  - fdchannel_http_requests_total{method,path,status}
  - fdchannel_http_request_duration_seconds{method,path}
  - fdchannel_uptime_seconds

# Usage

	metrics := monitoring.NewMetrics()
	r, w, err := descriptor.CreateReliablePipe(descriptor.WithRecorder(metrics))

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
