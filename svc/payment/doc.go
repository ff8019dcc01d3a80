// Package payment manages a subscription's payment methods, billing details
// and invoice history. Every operation is restricted to the subscription owner.
package payment
