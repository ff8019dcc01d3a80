// Package httpserver runs an http.Handler with configured timeouts and a
// bounded graceful shutdown driven by context cancellation.
package httpserver
