package server

import (
	"net/http"

	"hazacheck/internal/services"
)

const (
	msgSubmitted = "문의가 성공적으로 접수되었습니다."
	msgUpdated   = "문의 상태가 업데이트되었습니다."
	msgDeleted   = "문의가 삭제되었습니다."
)

// handleInquiries serves intake (POST) and lookup (GET)
func (s *Server) handleInquiries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.submitInquiry(w, r)
	case http.MethodGet:
		s.lookupInquiries(w, r)
	default:
		s.methodNotAllowed(w, r, "GET, POST")
	}
}

func (s *Server) submitInquiry(w http.ResponseWriter, r *http.Request) {
	var p services.SubmitPayload
	if err := decode(r, &p); err != nil {
		s.writeError(w, r, services.ErrInvalidBody)
		return
	}

	inquiry, err := s.inquiries.Submit(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOK(w, r, http.StatusCreated, msgSubmitted, inquiry)
}

func (s *Server) lookupInquiries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.inquiries.Lookup(r.Context(), services.LookupQuery{
		Phone:    q.Get("phone"),
		Password: q.Get("password"),
		Limit:    q.Get("limit"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Mode == services.LookupRecent {
		s.writeOK(w, r, http.StatusOK, "", res.Recent)
		return
	}
	s.writeList(w, r, res.Inquiries, len(res.Inquiries))
}

// handleAdminInquiries serves the token-gated triage API.
// Authorization runs before method dispatch; preflights never reach it.
func (s *Server) handleAdminInquiries(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(r.Header.Get("Authorization")); err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listInquiries(w, r)
	case http.MethodPatch:
		s.updateInquiry(w, r)
	case http.MethodDelete:
		s.deleteInquiry(w, r)
	default:
		s.methodNotAllowed(w, r, "GET, PATCH, DELETE")
	}
}

func (s *Server) listInquiries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.admin.List(r.Context(), services.ListQuery{
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
		Status: q.Get("status"),
		Search: q.Get("search"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOK(w, r, http.StatusOK, "", res)
}

func (s *Server) updateInquiry(w http.ResponseWriter, r *http.Request) {
	var p services.UpdatePayload
	if err := decode(r, &p); err != nil {
		s.writeError(w, r, services.ErrInvalidBody)
		return
	}

	res, err := s.admin.UpdateStatus(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOK(w, r, http.StatusOK, msgUpdated, res)
}

func (s *Server) deleteInquiry(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOK(w, r, http.StatusOK, msgDeleted, nil)
}

type sessionRequest struct {
	Token string `json:"token"`
}

// handleAdminSession exchanges the admin secret for a session token
func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, "POST")
		return
	}

	var req sessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, services.ErrInvalidBody)
		return
	}
	session, err := s.auth.IssueSession(req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOK(w, r, http.StatusOK, "", session)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w, r, "GET, HEAD")
		return
	}
	res, healthy := s.health.Check(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, res)
}
