package api

import (
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/saasbilling/svc/member"
)

type permissionsBody struct {
	Permissions []string `json:"permissions"`
}

func (s *Server) listUsers(req Request[struct{}]) (Result, error) {
	q, err := pageQuery(req)
	if err != nil {
		return Result{}, err
	}
	page, err := s.svc.Members.ListUsers(req.Context(), req.Caller, subscriptionID(req), q)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Data: page.Users,
		Meta: map[string]any{"total": page.Total, "page": page.Page, "page_size": page.PageSize},
	}, nil
}

// pageQuery leaves absent values at zero so the service applies its defaults.
func pageQuery[B any](req Request[B]) (member.PageQuery, error) {
	var q member.PageQuery
	values := req.HTTP.URL.Query()
	for name, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, ErrInvalidQuery.With(err)
		}
		*dst = n
	}
	return q, nil
}

func (s *Server) removeUser(req Request[struct{}]) (Result, error) {
	if err := s.svc.Members.RemoveUser(req.Context(), req.Caller, subscriptionID(req), chi.URLParam(req.HTTP, "uid")); err != nil {
		return Result{}, err
	}
	return noContent(), nil
}

func (s *Server) updatePermissions(req Request[permissionsBody]) (Result, error) {
	groups, err := s.svc.Members.UpdatePermissions(req.Context(), req.Caller, subscriptionID(req),
		chi.URLParam(req.HTTP, "uid"), req.Body.Permissions)
	if err != nil {
		return Result{}, err
	}
	return ok(permissionsBody{Permissions: groups}), nil
}

func (s *Server) saveProfile(req Request[member.ProfileInput]) (Result, error) {
	u, err := s.svc.Members.SaveProfile(req.Context(), req.Caller, req.Body)
	if err != nil {
		return Result{}, err
	}
	return ok(u), nil
}
