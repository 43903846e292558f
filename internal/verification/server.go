package verification

import (
	"log/slog"
	"net/http"
)

const sessionCookie = "payroll_verify_session"

// Server handles HTTP requests for the verification UI and API
type Server struct {
	service *Service
	mux     *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service) *Server {
	return NewServerWithMux(service, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// withSession resolves the browser session from the cookie, creating a new
// session (and setting the cookie) on first contact.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess := s.service.Sessions().GetOrCreate(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next(w, r, sess)
	}
}

// registerRoutes registers all routes on the server's mux.
// Routes are registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Static assets
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)
	s.mux.HandleFunc("GET /static/app.js", s.handleStaticJS)

	// API endpoints
	s.mux.HandleFunc("GET /api/state", s.withSession(s.handleState))
	s.mux.HandleFunc("POST /api/payroll", s.withSession(s.handleUploadPayroll))
	s.mux.HandleFunc("POST /api/receipt", s.withSession(s.handleUploadReceipt))
	s.mux.HandleFunc("POST /api/verify", s.withSession(s.handleVerify))
	s.mux.HandleFunc("GET /api/report", s.withSession(s.handleReport))

	// HTML interface (catch-all registered last)
	s.mux.HandleFunc("GET /index.html", s.handleIndex)
	s.mux.HandleFunc("GET /", s.handleIndex)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
