// Package httpapi serves field trees over HTTP: item reads, gated writes, the
// autosave endpoint, the generated OpenAPI document and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/pkg/decoder"
	"github.com/goliatone/go-fieldtree/pkg/openapi"
	"github.com/goliatone/go-fieldtree/pkg/posted"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/service"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// Service is the part of service.Service the handler needs.
type Service interface {
	Read(ctx context.Context, itemID int64) (service.Response, error)
	Write(ctx context.Context, req service.WriteRequest) (service.WriteResult, error)
	Registry() schema.Registry
}

var _ Service = (*service.Service)(nil)

// StatusError pairs an error with the HTTP status it maps to.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	svc  Service
	opts Options
}

// NewHandler routes the field tree endpoints on a chi router.
func NewHandler(svc Service, fns ...OptionFn) http.Handler {
	h := &handler{svc: svc, opts: NewOptions(fns...)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/items/{id}", func(r chi.Router) {
		r.Get("/fields", h.read)
		r.Post("/fields", h.write)
		r.Post("/autosave", h.autosave)
	})
	r.Get("/schema/openapi.json", h.openAPI)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}
	return r
}

func (h *handler) read(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp, err := h.svc.Read(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) write(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	groups, err := h.groups(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Write(r.Context(), service.WriteRequest{
		ItemID:  id,
		Allowed: h.allowed(r),
		Groups:  groups,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// autosave never decodes the body; the gate refuses autosaves before any
// value is touched.
func (h *handler) autosave(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Write(r.Context(), service.WriteRequest{
		ItemID:   id,
		Allowed:  h.allowed(r),
		Autosave: true,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) openAPI(w http.ResponseWriter, r *http.Request) {
	payload, err := openapi.JSON(r.Context(), h.svc.Registry(), h.opts.OpenAPIOptions...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// allowed combines the configured default, the persist header and the guard.
func (h *handler) allowed(r *http.Request) bool {
	if !h.opts.PersistDefault {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(r.Header.Get(h.opts.PersistHeader))) {
	case "false", "0", "no", "off":
		return false
	}
	if h.opts.Guard != nil {
		if err := h.opts.Guard(r); err != nil {
			h.opts.Logger.Debug("write vetoed by guard", zap.Error(err))
			return false
		}
	}
	return true
}

// groups reads the posted groups from a {"advanced": ...} body or a bare
// list of groups.
func (h *handler) groups(w http.ResponseWriter, r *http.Request) (posted.Node, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return posted.Node{}, StatusError{Code: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)}
		}
		return posted.Node{}, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("read body: %w", err)}
	}
	root, err := posted.Parse(body)
	if err != nil {
		return posted.Node{}, StatusError{Code: http.StatusBadRequest, Err: err}
	}
	groups := root
	if root.Kind() == posted.KindObject {
		advanced, ok := root.Get(decoder.PayloadKey)
		if !ok {
			return posted.Node{}, StatusError{Code: http.StatusBadRequest, Err: errors.New(`payload has no "advanced" member`)}
		}
		groups = advanced
	}
	if !groups.IsCollection() {
		return posted.Node{}, StatusError{Code: http.StatusBadRequest, Err: errors.New("posted groups must be an array or object")}
	}
	return groups, nil
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var statusErr StatusError
	switch {
	case errors.As(err, &statusErr):
		status = statusErr.StatusCode()
	case errors.Is(err, store.ErrItemNotFound):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.opts.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.opts.Logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func itemID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid item id %q", raw)}
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
