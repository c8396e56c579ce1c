// Package middleware provides HTTP middleware for vidmerge.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with a bounded path label
//   - Response compression (gzip) for JSON and front-end assets
//
// Every wrapper implements Unwrap so http.ResponseController can set write
// deadlines on streamed downloads. Media responses and attachments bypass
// compression from their first write.
package middleware
