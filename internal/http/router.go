package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/facility-scheduler/internal/auth"
)

// RouterConfig collects the handlers and cross-cutting middleware.
type RouterConfig struct {
	Facilities *FacilityHandler
	Equipment  *EquipmentHandler
	Bookings   *BookingHandler

	// Resolver authenticates callers. Nil treats everyone as anonymous.
	Resolver PrincipalResolver
	// Observer receives per-request metrics when set.
	Observer HTTPObserver
	// MetricsHandler is mounted at MetricsPath when both are set.
	MetricsHandler http.Handler
	MetricsPath    string

	Logger *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeError(r.Context(), w, http.StatusNotFound, codeNotFound, nil)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeError(r.Context(), w, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
	})

	router := mux.NewRouter()
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = methodNotAllowed

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, cfg.MetricsHandler).Methods(http.MethodGet)
	}

	// Subrouters do not inherit these, and a method mismatch below the prefix
	// would otherwise surface as 404.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed
	if cfg.Observer != nil {
		api.Use(Instrument(cfg.Observer))
	}
	api.Use(RequestLogger(logger))
	if cfg.Resolver != nil {
		api.Use(Authenticate(cfg.Resolver, logger))
	} else {
		api.Use(anonymous)
	}

	if h := cfg.Facilities; h != nil {
		api.HandleFunc("/buildings", h.ListBuildings).Methods(http.MethodGet)
		api.HandleFunc("/buildings", h.CreateBuilding).Methods(http.MethodPost)
		api.HandleFunc("/buildings/{id}", h.GetBuilding).Methods(http.MethodGet)
		api.HandleFunc("/buildings/{id}", h.UpdateBuilding).Methods(http.MethodPut)
		api.HandleFunc("/buildings/{id}", h.DeleteBuilding).Methods(http.MethodDelete)

		api.HandleFunc("/rooms", h.ListRooms).Methods(http.MethodGet)
		api.HandleFunc("/rooms", h.CreateRoom).Methods(http.MethodPost)
		api.HandleFunc("/rooms/{id}", h.GetRoom).Methods(http.MethodGet)
		api.HandleFunc("/rooms/{id}", h.UpdateRoom).Methods(http.MethodPut)
		api.HandleFunc("/rooms/{id}", h.DeleteRoom).Methods(http.MethodDelete)
	}

	if h := cfg.Bookings; h != nil {
		api.HandleFunc("/rooms/{id}/bookings", h.ListForRoom).Methods(http.MethodGet)
		api.HandleFunc("/rooms/{id}/occurrences", h.Occurrences).Methods(http.MethodGet)

		api.HandleFunc("/bookings", h.Propose).Methods(http.MethodPost)
		api.HandleFunc("/bookings/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/bookings/{id}", h.Propose).Methods(http.MethodPut)
		api.HandleFunc("/bookings/{id}", h.Cancel).Methods(http.MethodDelete)
	}

	if h := cfg.Equipment; h != nil {
		api.HandleFunc("/equipment", h.List).Methods(http.MethodGet)
		api.HandleFunc("/equipment", h.Upsert).Methods(http.MethodPost)
		api.HandleFunc("/equipment/{id}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/equipment/{id}", h.Upsert).Methods(http.MethodPut)
		api.HandleFunc("/equipment/{id}", h.Remove).Methods(http.MethodDelete)
	}

	return router
}

func anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), auth.Anonymous())))
	})
}
