package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/saasbilling/pkg/processor"
)

type setupIntentResult struct {
	ClientSecret string `json:"client_secret"`
}

type defaultPaymentMethodBody struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (s *Server) createSetupIntent(req Request[struct{}]) (Result, error) {
	secret, err := s.svc.Payments.CreateSetupIntent(req.Context(), req.Caller, subscriptionID(req))
	if err != nil {
		return Result{}, err
	}
	return created(setupIntentResult{ClientSecret: secret}), nil
}

func (s *Server) listPaymentMethods(req Request[struct{}]) (Result, error) {
	pms, err := s.svc.Payments.ListPaymentMethods(req.Context(), req.Caller, subscriptionID(req))
	if err != nil {
		return Result{}, err
	}
	return ok(pms), nil
}

func (s *Server) setDefaultPaymentMethod(req Request[defaultPaymentMethodBody]) (Result, error) {
	if err := s.svc.Payments.SetDefault(req.Context(), req.Caller, subscriptionID(req), req.Body.PaymentMethodID); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) deletePaymentMethod(req Request[struct{}]) (Result, error) {
	err := s.svc.Payments.DeletePaymentMethod(req.Context(), req.Caller, subscriptionID(req), chi.URLParam(req.HTTP, "pmID"))
	if err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) getBillingDetails(req Request[struct{}]) (Result, error) {
	details, err := s.svc.Payments.GetBillingDetails(req.Context(), req.Caller, subscriptionID(req))
	if err != nil {
		return Result{}, err
	}
	return ok(details), nil
}

func (s *Server) updateBillingDetails(req Request[processor.BillingDetails]) (Result, error) {
	details, err := s.svc.Payments.UpdateBillingDetails(req.Context(), req.Caller, subscriptionID(req), req.Body)
	if err != nil {
		return Result{}, err
	}
	return ok(details), nil
}

func (s *Server) listInvoices(req Request[struct{}]) (Result, error) {
	invoices, err := s.svc.Payments.ListInvoices(req.Context(), req.Caller, subscriptionID(req))
	if err != nil {
		return Result{}, err
	}
	return ok(invoices), nil
}
