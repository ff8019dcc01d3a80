package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/saasbilling/svc/subscription"
)

type cancelBody struct {
	// Confirmation must repeat the subscription id.
	Confirmation string `json:"confirmation"`
}

type transferBody struct {
	NewOwnerID string `json:"new_owner_id"`
}

type settingsBody struct {
	Settings map[string]string `json:"settings"`
}

func subscriptionID[B any](req Request[B]) string { return chi.URLParam(req.HTTP, "id") }

func (s *Server) createSubscription(req Request[subscription.CreateInput]) (Result, error) {
	res, err := s.svc.Subscriptions.Create(req.Context(), req.Caller, req.Body)
	if err != nil {
		return Result{}, err
	}
	return created(res), nil
}

func (s *Server) getSubscription(req Request[struct{}]) (Result, error) {
	sub, err := s.svc.Subscriptions.Get(req.Context(), req.Caller, subscriptionID(req))
	if err != nil {
		return Result{}, err
	}
	return ok(sub), nil
}

func (s *Server) changePlan(req Request[subscription.ChangePlanInput]) (Result, error) {
	sub, err := s.svc.Subscriptions.ChangePlan(req.Context(), req.Caller, subscriptionID(req), req.Body)
	if err != nil {
		return Result{}, err
	}
	return ok(sub), nil
}

func (s *Server) cancelSubscription(req Request[cancelBody]) (Result, error) {
	if err := s.svc.Subscriptions.Cancel(req.Context(), req.Caller, subscriptionID(req), req.Body.Confirmation); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) transferOwnership(req Request[transferBody]) (Result, error) {
	if err := s.svc.Subscriptions.TransferOwnership(req.Context(), req.Caller, subscriptionID(req), req.Body.NewOwnerID); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) updateSettings(req Request[settingsBody]) (Result, error) {
	if err := s.svc.Subscriptions.UpdateSettings(req.Context(), req.Caller, subscriptionID(req), req.Body.Settings); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}
