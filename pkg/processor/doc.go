// Package processor defines the payment processor contract. The stripe
// subpackage implements it with stripe-go; fake is an in-memory double for
// tests.
package processor
