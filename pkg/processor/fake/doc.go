// Package fake provides an in-memory payment processor for tests.
package fake
