package payment

import "log/slog"

type ServiceOption func(*service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInvoiceLimit caps ListInvoices. Non-positive values are ignored.
func WithInvoiceLimit(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.invoiceLimit = n
		}
	}
}
