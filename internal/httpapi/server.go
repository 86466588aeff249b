package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/export"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/signature"
	"github.com/BrandonDHaskell/registre/internal/register/types"
	"github.com/BrandonDHaskell/registre/internal/register/view"
)

type Dependencies struct {
	Logger   zerolog.Logger
	Addr     string
	Register *service.Register
	Visitors *service.VisitorIntake
	Events   *service.EventIntake
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
	Health   func(context.Context) error
	Location *time.Location // how bare dates are read and exports are shown

	SignatureWidth  int
	SignatureHeight int
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	mux        *http.ServeMux
	register   *service.Register
	visitors   *service.VisitorIntake
	events     *service.EventIntake
	metrics    *metrics.Metrics
	health     func(context.Context) error
	loc        *time.Location
	sigW, sigH int
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		register: d.Register,
		visitors: d.Visitors,
		events:   d.Events,
		metrics:  d.Metrics,
		health:   d.Health,
		loc:      d.Location,
		sigW:     d.SignatureWidth,
		sigH:     d.SignatureHeight,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.sigW == 0 {
		s.sigW = signature.DefaultWidth
	}
	if s.sigH == 0 {
		s.sigH = signature.DefaultHeight
	}
	if !signature.FitsSurface(s.sigW, s.sigH) {
		d.Logger.Warn().Int("width", s.sigW).Int("height", s.sigH).Msg("signature size beyond maximum; using default")
		s.sigW, s.sigH = signature.DefaultWidth, signature.DefaultHeight
	}

	mux.HandleFunc("GET /v1/visitors", s.handleListVisitors)
	mux.HandleFunc("POST /v1/visitors", s.handleCreateVisitor)
	mux.HandleFunc("GET /v1/visitors/search", s.handleSearchVisitors)
	mux.HandleFunc("GET /v1/visitors/export", s.handleExportVisitors)
	mux.HandleFunc("GET /v1/visitors/{id}", s.handleGetVisitor)
	mux.HandleFunc("DELETE /v1/visitors/{id}", s.handleDeleteVisitor)

	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("POST /v1/events", s.handleCreateEvent)
	mux.HandleFunc("GET /v1/events/export", s.handleExportEvents)
	mux.HandleFunc("GET /v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("POST /v1/events/{id}/resolve", s.handleResolveEvent)

	mux.HandleFunc("GET /v1/drafts/visitor", s.handleMountVisitorDraft)
	mux.HandleFunc("PUT /v1/drafts/visitor", s.handleChangeVisitorDraft)
	mux.HandleFunc("DELETE /v1/drafts/visitor", s.handleResetVisitorDraft)
	mux.HandleFunc("GET /v1/drafts/event", s.handleMountEventDraft)
	mux.HandleFunc("PUT /v1/drafts/event", s.handleChangeEventDraft)
	mux.HandleFunc("DELETE /v1/drafts/event", s.handleResetEventDraft)
	mux.HandleFunc("POST /v1/drafts/event/visitor/{id}", s.handleSelectEventVisitor)

	mux.HandleFunc("POST /v1/signatures", s.handleSignature)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	handler := loggingMiddleware(d.Logger, recoveryMiddleware(d.Logger, mux))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Visitors ─────────────────────────────────────────────────────────────────

func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	vs := view.SortByDateDescending(view.FilterVisitors(s.register.Visitors(), r.URL.Query().Get("q")))
	s.respond(w, r, http.StatusOK, visitorList{Visitors: vs, Count: len(vs)})
}

func (s *Server) handleSearchVisitors(w http.ResponseWriter, r *http.Request) {
	vs := view.SortByDateDescending(view.SearchVisitors(s.register.Visitors(), r.URL.Query().Get("q")))
	s.respond(w, r, http.StatusOK, visitorList{Visitors: vs, Count: len(vs)})
}

func (s *Server) handleGetVisitor(w http.ResponseWriter, r *http.Request) {
	v, err := s.register.Visitor(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, v)
}

func (s *Server) handleCreateVisitor(w http.ResponseWriter, r *http.Request) {
	var body visitorFormBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}

	v, err := s.visitors.Submit(r.Context(), body.form(s.loc))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, v)
}

func (s *Server) handleDeleteVisitor(w http.ResponseWriter, r *http.Request) {
	if err := s.register.DeleteVisitor(r.Context(), r.PathValue("id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportVisitors(w http.ResponseWriter, r *http.Request) {
	vs := view.SortByDateDescending(view.FilterVisitors(s.register.Visitors(), r.URL.Query().Get("q")))
	s.export(w, r, export.KindVisitors, export.VisitorTable(vs, s.loc))
}

// ── Traceability ─────────────────────────────────────────────────────────────

func eventQuery(r *http.Request) view.EventQuery {
	q := r.URL.Query()
	return view.EventQuery{Text: q.Get("q"), Status: q.Get("status"), Kind: q.Get("type")}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	es := view.SortByDateDescending(view.FilterEvents(s.register.Events(), eventQuery(r)))
	s.respond(w, r, http.StatusOK, eventList{Events: es, Count: len(es)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.register.Event(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, e)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var body eventFormBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}

	e, err := s.events.Submit(r.Context(), body.form(s.loc))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, e)
}

func (s *Server) handleResolveEvent(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if r.ContentLength != 0 {
		if err := decodeBody(r, &body); err != nil {
			s.badBody(w, r, err)
			return
		}
	}

	e, err := s.register.ResolveEvent(r.Context(), r.PathValue("id"), body.ResolvedBy)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, e)
}

func (s *Server) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	es := view.SortByDateDescending(view.FilterEvents(s.register.Events(), eventQuery(r)))
	s.export(w, r, export.KindEvents, export.EventTable(es, s.loc))
}

// ── Drafts ───────────────────────────────────────────────────────────────────

func (s *Server) handleMountVisitorDraft(w http.ResponseWriter, r *http.Request) {
	form, restored := s.visitors.Mount(r.Context())
	s.respond(w, r, http.StatusOK, visitorDraftResponse{
		Form:        form,
		Restored:    restored,
		draftStatus: newDraftStatus(s.visitors.Dirty(), s.visitors.SavedAt()),
	})
}

func (s *Server) handleChangeVisitorDraft(w http.ResponseWriter, r *http.Request) {
	var body visitorFormBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}
	s.visitors.Change(r.Context(), body.form(s.loc))
	s.respond(w, r, http.StatusOK, newDraftStatus(s.visitors.Dirty(), s.visitors.SavedAt()))
}

func (s *Server) handleResetVisitorDraft(w http.ResponseWriter, r *http.Request) {
	form := s.visitors.Reset(r.Context())
	s.respond(w, r, http.StatusOK, visitorDraftResponse{
		Form:        form,
		draftStatus: newDraftStatus(s.visitors.Dirty(), s.visitors.SavedAt()),
	})
}

func (s *Server) handleMountEventDraft(w http.ResponseWriter, r *http.Request) {
	form, restored := s.events.Mount(r.Context())
	s.respond(w, r, http.StatusOK, eventDraftResponse{
		Form:        form,
		Restored:    restored,
		draftStatus: newDraftStatus(s.events.Dirty(), s.events.SavedAt()),
	})
}

func (s *Server) handleChangeEventDraft(w http.ResponseWriter, r *http.Request) {
	var body eventFormBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}
	s.events.Change(r.Context(), body.form(s.loc))
	s.respond(w, r, http.StatusOK, newDraftStatus(s.events.Dirty(), s.events.SavedAt()))
}

func (s *Server) handleResetEventDraft(w http.ResponseWriter, r *http.Request) {
	form := s.events.Reset(r.Context())
	s.respond(w, r, http.StatusOK, eventDraftResponse{
		Form:        form,
		draftStatus: newDraftStatus(s.events.Dirty(), s.events.SavedAt()),
	})
}

func (s *Server) handleSelectEventVisitor(w http.ResponseWriter, r *http.Request) {
	var body eventFormBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}
	form, ok := s.events.SelectVisitor(r.Context(), body.form(s.loc), r.PathValue("id"))
	if !ok {
		s.fail(w, r, http.StatusNotFound, errorBody{Error: "not_found", Message: "unknown visitor"})
		return
	}
	s.respond(w, r, http.StatusOK, eventDraftResponse{
		Form:        form,
		draftStatus: newDraftStatus(s.events.Dirty(), s.events.SavedAt()),
	})
}

// ── Signatures ───────────────────────────────────────────────────────────────

func (s *Server) handleSignature(w http.ResponseWriter, r *http.Request) {
	var body signatureBody
	if err := decodeBody(r, &body); err != nil {
		s.badBody(w, r, err)
		return
	}
	width, height := body.Width, body.Height
	if width == 0 {
		width = s.sigW
	}
	if height == 0 {
		height = s.sigH
	}

	opts := []signature.Option{signature.WithLogger(s.logger), signature.WithMetrics(s.metrics)}
	if body.Payload != "" {
		opts = append(opts, signature.WithPayload(body.Payload))
	}
	payload, err := signature.Replay(width, height, body.Bounds, body.Events, opts...)
	switch {
	case errors.Is(err, signature.ErrSurfaceTooLarge):
		s.fail(w, r, http.StatusUnprocessableEntity, errorBody{Error: "surface_too_large", Message: err.Error()})
		return
	case errors.Is(err, signature.ErrInert):
		s.fail(w, r, http.StatusUnprocessableEntity, errorBody{Error: "no_surface", Message: err.Error()})
		return
	case err != nil:
		s.fail(w, r, http.StatusBadRequest, errorBody{Error: "bad_events", Message: err.Error()})
		return
	}
	s.respond(w, r, http.StatusOK, signatureResponse{Payload: payload, Empty: payload == ""})
}

// ── Health / export / errors ─────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			s.fail(w, r, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: "storage unavailable"})
			return
		}
	}
	s.respond(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, kind export.Kind, t export.Table) {
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_format", "format must be csv or xlsx")
		return
	}

	var buf bytes.Buffer
	err := export.Write(&buf, format, t)
	if errors.Is(err, export.ErrNoRows) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.logger.Error().Stack().Err(err).Str("kind", string(kind)).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	name := export.Filename(kind, format, s.register.Now().In(s.loc))
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	s.metrics.Exported(string(kind), string(format))
}

func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bad request body")
	writeError(w, http.StatusBadRequest, "bad_body", "invalid request body")
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		s.fail(w, r, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation_failed",
			Message: "some fields are invalid",
			Fields:  verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		s.fail(w, r, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, types.ErrAlreadyResolved):
		s.fail(w, r, http.StatusConflict, errorBody{Error: "already_resolved", Message: err.Error()})
	default:
		s.logger.Error().Stack().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.fail(w, r, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "unexpected server error"})
	}
}
