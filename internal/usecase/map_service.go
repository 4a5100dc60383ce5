package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/config"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/geocoding"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/storage"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// geocodeTask resolves the coordinates of one contact on the map page.
type geocodeTask struct {
	ctx     context.Context
	contact *model.Contact
	wg      *sync.WaitGroup
}

// MapService returns contact pages with coordinates resolved through a
// bounded geocoding pool.
type MapService struct {
	contactRepo storage.ContactRepo
	geocoder    geocoding.Geocoder
	pool        *ants.PoolWithFunc
	baseLogger  *zap.Logger
}

// NewMapService creates the map service and its geocoding worker pool.
func NewMapService(
	cfg config.WorkerPoolConfig,
	contactRepo storage.ContactRepo,
	geocoder geocoding.Geocoder,
	baseLogger *zap.Logger,
) (*MapService, error) {
	svc := &MapService{
		contactRepo: contactRepo,
		geocoder:    geocoder,
		baseLogger:  baseLogger.Named("geocode_worker"),
	}

	opts := []ants.Option{
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(p interface{}) {
			svc.baseLogger.Error("Panic recovered in geocode worker", zap.Any("panic_error", p), zap.Stack("stack"))
		}),
	}
	if cfg.ExpiryTime > 0 {
		opts = append(opts, ants.WithExpiryDuration(cfg.ExpiryTime))
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(geocodeTask)
		if !ok {
			svc.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		defer task.wg.Done()
		_ = utils.WrapWithContextRecovery("geocode contact", func(ctx context.Context) error {
			svc.resolve(ctx, task.contact)
			return nil
		})(task.ctx)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode worker pool: %w", err)
	}
	svc.pool = pool
	svc.baseLogger.Info("Geocode worker pool initialized", zap.Int("pool_size", cfg.PoolSize))
	return svc, nil
}

// MapContacts loads one page of contacts and fills in missing coordinates.
// A contact whose lookup fails is returned without coordinates.
func (s *MapService) MapContacts(ctx context.Context, filter contactquery.Filter, page contactquery.Page) (*ContactPage, error) {
	contacts, total, err := s.contactRepo.FindContacts(ctx, contactquery.Build(filter), page)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	var wg sync.WaitGroup
	for i := range contacts {
		if _, ok := contacts[i].Location(); ok || contacts[i].GeocodeQuery() == "" {
			continue
		}
		wg.Add(1)
		if err := s.pool.Invoke(geocodeTask{ctx: ctx, contact: &contacts[i], wg: &wg}); err != nil {
			wg.Done()
			logger.FromContextOr(ctx, s.baseLogger).Warn("Failed to submit geocode task",
				zap.String("contact_id", contacts[i].ID),
				zap.Error(err),
			)
		}
		observer.SetGeocodePoolRunning(s.pool.Running())
	}
	wg.Wait()
	observer.SetGeocodePoolRunning(s.pool.Running())

	return &ContactPage{
		Contacts:    contacts,
		TotalItems:  total,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(total),
	}, nil
}

// resolve geocodes one contact and persists the result.
func (s *MapService) resolve(ctx context.Context, contact *model.Contact) {
	log := logger.FromContextOr(ctx, s.baseLogger).With(zap.String("contact_id", contact.ID))

	coords, err := s.geocoder.Geocode(ctx, contact.GeocodeQuery())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Debug("No geocode result for contact")
		} else {
			log.Warn("Geocoding failed for contact", zap.Error(err))
		}
		return
	}

	located := datatypes.NewJSONType(coords)
	contact.Coordinates = &located
	if err := s.contactRepo.SetCoordinates(ctx, contact.ID, coords); err != nil {
		log.Warn("Failed to persist contact coordinates", zap.Error(err))
	}
}

// Stop releases the worker pool.
func (s *MapService) Stop() {
	s.pool.Release()
}
