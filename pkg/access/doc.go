// Package access is the single place subscription authorization is decided.
//
// The owner is implicitly an admin. Every active member belongs to the
// catalog's default group: Grant and SetExact always include it, and RevokeAll
// removes a user from everything at once, so no user is ever left in a
// non-default group without the default one.
package access
