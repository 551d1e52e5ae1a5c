package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"hazacheck/internal/config"
	"hazacheck/internal/domain"
	"hazacheck/internal/metrics"
	"hazacheck/internal/services"
)

// InquiryAPI is the customer-facing inquiry service
type InquiryAPI interface {
	Submit(ctx context.Context, p services.SubmitPayload) (*domain.Inquiry, error)
	Lookup(ctx context.Context, q services.LookupQuery) (*services.LookupResult, error)
}

// AdminAPI is the staff triage service
type AdminAPI interface {
	List(ctx context.Context, q services.ListQuery) (*services.ListResult, error)
	UpdateStatus(ctx context.Context, p services.UpdatePayload) (*services.UpdateResult, error)
	Delete(ctx context.Context, rawID string) error
}

// Authorizer validates admin credentials
type Authorizer interface {
	Authorize(header string) error
	IssueSession(adminToken string) (*services.Session, error)
}

// HealthChecker reports service health
type HealthChecker interface {
	Check(ctx context.Context) (services.HealthResult, bool)
}

// Server wires the HTTP routes to the services
type Server struct {
	cfg       *config.Config
	log       *zap.Logger
	inquiries InquiryAPI
	admin     AdminAPI
	auth      Authorizer
	health    HealthChecker
}

// New creates a new HTTP server
func New(cfg *config.Config, log *zap.Logger, inquiries InquiryAPI, admin AdminAPI, auth Authorizer, health HealthChecker) *Server {
	return &Server{
		cfg:       cfg,
		log:       log.Named("http"),
		inquiries: inquiries,
		admin:     admin,
		auth:      auth,
		health:    health,
	}
}

// Every route is served at the root and under /api
var routePrefixes = []string{"", "/api"}

var allMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Handler builds the full middleware chain around the route mux.
// OPTIONS is answered by the cors middleware and never reaches a route.
func (s *Server) Handler() http.Handler {
	mux := goahttp.NewMuxer()

	routes := map[string]http.HandlerFunc{
		"/inquiries":       s.handleInquiries,
		"/admin/inquiries": s.handleAdminInquiries,
		"/admin/session":   s.handleAdminSession,
		"/health":          s.handleHealth,
	}

	s.log.Info("mounting HTTP handlers")
	for _, prefix := range routePrefixes {
		for path, h := range routes {
			for _, method := range allMethods {
				mux.Handle(method, prefix+path, h)
			}
		}
		mux.Handle(http.MethodGet, prefix+"/metrics", promhttp.Handler().ServeHTTP)
	}

	var handler http.Handler = mux
	handler = metrics.PrometheusMiddleware(handler)
	handler = requestLogging(s.log)(handler)
	handler = cors(s.cfg.CORS)(handler)
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID()(handler)
	handler = securityHeaders(s.cfg.App)(handler)
	return otelhttp.NewHandler(handler, s.cfg.App.Name)
}
