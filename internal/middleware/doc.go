// Package middleware provides HTTP middleware for the gallery server.
//
// It includes:
//   - Access logging in W3C Extended Log Format, with thumbnails, icons and
//     health checks optionally filtered
//   - Prometheus request metrics labelled by route template
//   - LazyStart, which starts background work on the first request
package middleware
