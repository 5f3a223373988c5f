/*
Package monitoring provides metrics collection for boxfs operations.

# Overview

Every service operation is counted by outcome, timed by strategy, and its failed
entries are counted by kind. Successful fetches and uploads add their size to a byte
counter.

# Usage

	metrics := monitoring.NewMetrics("boxfs", prometheus.DefaultRegisterer)

	timer := metrics.StartTimer()
	res, err := engine.Create(ctx, req)
	timer.Stop(res)

# Metrics Endpoint

Expose metrics via the standard Prometheus handler:

	http.Handle("/metrics", promhttp.Handler())
*/
package monitoring
