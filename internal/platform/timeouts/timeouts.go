// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StatsRequest caps one call from the main service to the stats service.
const StatsRequest = 2 * time.Second

// HitDelivery caps a background hit delivery, which outlives its request.
const HitDelivery = 3 * time.Second

// ConfirmRetry bounds the total time spent retrying a contended
// participation batch.
const ConfirmRetry = 2 * time.Second

// DependencyWait bounds how long a service waits at startup for a
// dependency's health check to report SERVING.
const DependencyWait = 10 * time.Second
