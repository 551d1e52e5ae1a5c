package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	goamiddleware "goa.design/goa/v3/middleware"

	apperrors "hazacheck/pkg/errors"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "서버 오류가 발생했습니다."
)

// envelope is the uniform response body
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func withJSON(ctx context.Context) context.Context {
	return context.WithValue(ctx, goahttp.ContentTypeKey, "application/json")
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := goahttp.ResponseEncoder(withJSON(r.Context()), w).Encode(body); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err), requestIDField(r))
	}
}

func (s *Server) writeOK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	s.writeJSON(w, r, status, envelope{Success: true, Message: message, Data: data})
}

func (s *Server) writeList(w http.ResponseWriter, r *http.Request, data any, count int) {
	s.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

// writeError maps an error to its status and envelope. Causes of server
// errors are only exposed in development.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(apperrors.ErrCodeInternalError, msgInternal, err)
	}
	status := appErr.Status()

	switch {
	case apperrors.IsUnauthorized(err):
		s.log.Info("unauthorized request", zap.String("path", r.URL.Path), requestIDField(r))
	case apperrors.IsValidation(err), apperrors.IsNotFound(err):
		s.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("code", string(appErr.Code)), requestIDField(r))
	}

	body := envelope{Success: false, Message: appErr.Message}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path), requestIDField(r))
		if s.cfg.App.IsDevelopment() && appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
	}
	s.writeJSON(w, r, status, body)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, r, apperrors.New(apperrors.ErrCodeMethodNotAllowed, msgMethodNotAllowed))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func requestIDField(r *http.Request) zap.Field {
	if id, ok := r.Context().Value(goamiddleware.RequestIDKey).(string); ok {
		return zap.String("request_id", id)
	}
	return zap.Skip()
}
