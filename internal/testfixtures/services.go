package testfixtures

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence/memory"
)

// Services bundles the application services wired to fresh in-memory stores.
type Services struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Catalog     *memory.Catalog
	Store       *memory.BookingStore
	Facility    *application.FacilityService
	Equipment   *application.EquipmentService
	Booking     *application.BookingService
}

type servicesConfig struct {
	clock       *Clock
	ids         *IDGenerator
	lockTimeout time.Duration
	location    *time.Location
	metrics     application.BookingMetrics
	logger      *slog.Logger
}

// ServicesOption configures NewServices.
type ServicesOption func(*servicesConfig)

func WithClock(clock *Clock) ServicesOption {
	return func(c *servicesConfig) { c.clock = clock }
}

func WithIDGenerator(ids *IDGenerator) ServicesOption {
	return func(c *servicesConfig) { c.ids = ids }
}

func WithLockTimeout(d time.Duration) ServicesOption {
	return func(c *servicesConfig) { c.lockTimeout = d }
}

func WithLocation(loc *time.Location) ServicesOption {
	return func(c *servicesConfig) { c.location = loc }
}

func WithMetrics(m application.BookingMetrics) ServicesOption {
	return func(c *servicesConfig) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) ServicesOption {
	return func(c *servicesConfig) { c.logger = logger }
}

// NewServices wires the facility, equipment and booking services the same way
// the server does, using a deterministic clock and id sequence.
func NewServices(opts ...ServicesOption) *Services {
	cfg := servicesConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(time.Time{})
	}
	if cfg.ids == nil {
		cfg.ids = NewIDGenerator("id")
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	catalog := memory.NewCatalog()
	store := memory.NewBookingStore()
	booking := application.NewBookingService(store, catalog, cfg.ids.NextFunc(), cfg.clock.NowFunc(), application.BookingOptions{
		Location:    cfg.location,
		LockTimeout: cfg.lockTimeout,
		Metrics:     cfg.metrics,
		Logger:      cfg.logger,
	})

	return &Services{
		Clock:       cfg.clock,
		IDGenerator: cfg.ids,
		Catalog:     catalog,
		Store:       store,
		Facility:    application.NewFacilityServiceWithLogger(catalog, booking, cfg.ids.NextFunc(), cfg.clock.NowFunc(), cfg.logger),
		Equipment:   application.NewEquipmentServiceWithLogger(catalog, catalog, cfg.ids.NextFunc(), cfg.clock.NowFunc(), cfg.logger),
		Booking:     booking,
	}
}

// SeedRoom creates a building and one room in it through the services.
func (s *Services) SeedRoom(ctx context.Context, opts ...RoomOption) (domain.Building, domain.Room, error) {
	building, err := s.Facility.CreateBuilding(ctx, Manager, NewBuilding())
	if err != nil {
		return domain.Building{}, domain.Room{}, fmt.Errorf("seed building: %w", err)
	}
	room, err := s.Facility.CreateRoom(ctx, Manager, NewRoom(building.ID, opts...))
	if err != nil {
		return domain.Building{}, domain.Room{}, fmt.Errorf("seed room: %w", err)
	}
	return building, room, nil
}
