package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"taskboard/internal/repository"
	"taskboard/internal/service/auth"
	"taskboard/internal/service/project"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	project  project.Service
	dbHealth func(context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, projectSvc project.Service, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		project:  projectSvc,
		dbHealth: dbHealth,
	}
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/signup", r.audit(r.handleSignup))
	r.mux.HandleFunc("/login", r.audit(r.handleLogin))
	r.mux.HandleFunc("/projects", r.audit(r.requireAuth(r.handleProjects)))
	r.mux.HandleFunc("/projects/", r.audit(r.requireAuth(r.handleProjectSubroutes)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.auth.Signup(req.Context(), payload.Username, payload.Email, payload.Password); err != nil {
		r.respondError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Account created successfully")
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"token": token}, "Successfully logged in")
}

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		projects, err := r.project.List(req.Context())
		if err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusOK, projects, "Successfully found")
	case http.MethodPost:
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, err := r.project.Create(req.Context(), payload.Title); err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusCreated, nil, "Successfully created new project")
	default:
		r.methodNotAllowed(w)
	}
}

// handleProjectSubroutes dispatches /projects/{id}[/todos|/todostatus/...].
func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/projects/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		r.notFound(w)
		return
	}
	projectID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleProject(w, req, projectID)
	case len(parts) == 2 && parts[1] == "todos":
		r.handleTodoCreate(w, req, projectID)
	case len(parts) == 3 && parts[1] == "todos":
		r.handleTodo(w, req, projectID, parts[2])
	case len(parts) == 3 && parts[1] == "todostatus":
		r.handleTodoStatus(w, req, projectID, parts[2])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProject(w http.ResponseWriter, req *http.Request, projectID string) {
	switch req.Method {
	case http.MethodGet:
		proj, err := r.project.Get(req.Context(), projectID)
		if err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusOK, proj, "Successfully found")
	case http.MethodPut:
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := r.project.Rename(req.Context(), projectID, payload.Title); err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Successfully updated")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTodoCreate(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.project.AddTodo(req.Context(), projectID, payload.Description); err != nil {
		r.respondError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusCreated, nil, "Successfully created todo")
}

func (r *Router) handleTodo(w http.ResponseWriter, req *http.Request, projectID, todoID string) {
	switch req.Method {
	case http.MethodPut:
		var payload struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := r.project.UpdateTodoDescription(req.Context(), projectID, todoID, payload.Description); err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Successfully updated todo")
	case http.MethodDelete:
		if err := r.project.DeleteTodo(req.Context(), projectID, todoID); err != nil {
			r.respondError(w, req, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Successfully deleted todo")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTodoStatus(w http.ResponseWriter, req *http.Request, projectID, todoID string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.project.UpdateTodoStatus(req.Context(), projectID, todoID, payload.Status); err != nil {
		r.respondError(w, req, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Successfully updated status")
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	status := "ok"
	code := http.StatusOK
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeEnvelope(w, code, envelope{
		Success: code == http.StatusOK,
		Data: map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
		Message: status,
	})
}

// respondError translates service and repository errors into the
// envelope. Unexpected errors surface as a generic internal error with
// no detail leaked to the client.
func (r *Router) respondError(w http.ResponseWriter, req *http.Request, err error) {
	var validation *auth.ValidationError
	switch {
	case errors.As(err, &validation),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, project.ErrTitleRequired),
		errors.Is(err, project.ErrDescriptionRequired),
		errors.Is(err, project.ErrInvalidStatus):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeFailure(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, project.ErrConflictExhausted):
		writeFailure(w, http.StatusConflict, err.Error())
	default:
		r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		actor := "anonymous"
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeFailure(w, http.StatusNotFound, "Resource not found")
}
