// Package identity authenticates callers.
//
// Callers present an HS256 JWT whose subject is their uid and whose email and
// email_verified claims come from the identity provider. Middleware verifies
// the token with github.com/golang-jwt/jwt/v5 and places a Caller in the
// request context; services read it back with FromContext.
//
// Email addresses are compared case-insensitively everywhere. NormalizeEmail
// is the one place that folding happens.
package identity
