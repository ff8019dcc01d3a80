package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/saasbilling/svc/invite"
)

func inviteID[B any](req Request[B]) string { return chi.URLParam(req.HTTP, "inviteID") }

func (s *Server) createInvite(req Request[invite.CreateInput]) (Result, error) {
	inv, err := s.svc.Invites.Create(req.Context(), req.Caller, subscriptionID(req), req.Body)
	if err != nil {
		return Result{}, err
	}
	return created(inv), nil
}

func (s *Server) revokeInvite(req Request[struct{}]) (Result, error) {
	if err := s.svc.Invites.Revoke(req.Context(), req.Caller, subscriptionID(req), inviteID(req)); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) acceptInvite(req Request[struct{}]) (Result, error) {
	if err := s.svc.Invites.Accept(req.Context(), req.Caller, inviteID(req)); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) rejectInvite(req Request[struct{}]) (Result, error) {
	if err := s.svc.Invites.Reject(req.Context(), req.Caller, inviteID(req)); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) listMyInvites(req Request[struct{}]) (Result, error) {
	invites, err := s.svc.Invites.ListForCaller(req.Context(), req.Caller)
	if err != nil {
		return Result{}, err
	}
	return ok(invites), nil
}
