// Package requestid attaches a correlation id to every HTTP request.
//
// A client supplied X-Request-ID is reused when it is short and made of
// letters, digits, '-' and '_'; anything else is replaced. The id is echoed in
// the response and, through LoggerExtractor, stamped on every log record
// written with the request context.
package requestid
