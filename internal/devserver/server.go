package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
)

const maxBodyBytes = 1 << 16

// HTTPDeps are the collaborators of the router. A nil Registry disables
// the metrics middleware and the /metrics endpoint.
type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
}

// Server serves the products API over a MemStore.
type Server struct {
	Store *MemStore
	Log   *zap.Logger

	mutations *prometheus.CounterVec
}

// NewHandler returns the full router: middleware, /healthz, /metrics and
// the product routes.
func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(Logging(deps.Log))

	metrics := newServerMetrics(deps.Service, s.Store)
	s.mutations = metrics.mutations
	if deps.Registry != nil {
		metrics.register(deps.Registry)
		r.Use(metrics.middleware)
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/create", s.create)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.delete)
	})
	return r
}

type updateBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Store.List())
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var draft catalog.Draft
	if !s.decodeBody(w, r, &draft) {
		return
	}
	if !s.validDraft(w, r, "", draft) {
		return
	}
	p := s.Store.Create(draft)
	s.mutations.WithLabelValues("create").Inc()
	s.Log.Info("product created", zap.String("id", p.ID), zap.String("name", p.Name), zap.Int("price", p.Price))
	s.writeAck(w, http.StatusCreated, "Product created")
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body updateBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.ID != "" && body.ID != id {
		s.writeError(w, r, http.StatusBadRequest, apiError{
			Error: fmt.Sprintf("id mismatch: body carries %q", body.ID),
			ID:    id,
		})
		return
	}
	draft := catalog.Draft{Name: body.Name, Price: body.Price}
	if !s.validDraft(w, r, id, draft) {
		return
	}

	if _, ok := s.Store.Update(id, draft); !ok {
		s.writeError(w, r, http.StatusNotFound, apiError{Error: "product not found", ID: id})
		return
	}
	s.mutations.WithLabelValues("update").Inc()
	s.Log.Info("product updated", zap.String("id", id))
	s.writeAck(w, http.StatusOK, "Product updated")
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Store.Delete(id) {
		s.writeError(w, r, http.StatusNotFound, apiError{Error: "product not found", ID: id})
		return
	}
	s.mutations.WithLabelValues("delete").Inc()
	s.Log.Info("product deleted", zap.String("id", id))
	s.writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, apiError{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

// validDraft answers 400 with the rejected fields when d fails validation.
// id is empty for creates.
func (s *Server) validDraft(w http.ResponseWriter, r *http.Request, id string, d catalog.Draft) bool {
	err := d.Validate()
	if err == nil {
		return true
	}
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		s.writeError(w, r, http.StatusBadRequest, apiError{Error: "validation failed", ID: id, Fields: ve.Fields})
		return false
	}
	s.writeError(w, r, http.StatusInternalServerError, apiError{Error: err.Error(), ID: id})
	return false
}
