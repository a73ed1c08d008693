// Package api hosts the optional read-only status server. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the poller's latest cycle.
//   - GET /v1/history for the recorded observations, newest last.
package api
