package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/models"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
)

// EntryUpdate holds the editable fields of a history entry.
// A nil Timestamp leaves the stored timestamp unchanged.
type EntryUpdate struct {
	City        string
	Temperature float64
	Description string
	Timestamp   *time.Time
}

// HistoryService manages per-user weather history.
type HistoryService struct {
	entries EntryStore
	clock   clockwork.Clock
}

func NewHistoryService(entries EntryStore, clock clockwork.Clock) *HistoryService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HistoryService{entries: entries, clock: clock}
}

// Record stores a lookup result for userID, stamped with the current time.
func (s *HistoryService) Record(ctx context.Context, userID uint, w models.WeatherData) (repository.WeatherEntry, error) {
	owner := userID
	e := repository.WeatherEntry{
		UserID:      &owner,
		City:        w.City,
		Temperature: w.Temperature,
		Description: w.Description,
		Humidity:    w.Humidity,
		WindSpeed:   w.WindSpeed,
		Timestamp:   s.clock.Now().UTC(),
	}
	if err := s.entries.Create(ctx, &e); err != nil {
		return repository.WeatherEntry{}, fmt.Errorf("record lookup: %w", err)
	}
	observability.HistoryMutationsTotal.WithLabelValues("create", "user").Inc()
	return e, nil
}

// Import stores entries in batches and returns the number written.
func (s *HistoryService) Import(ctx context.Context, entries []repository.WeatherEntry, batchSize int) (int, error) {
	n, err := s.entries.CreateInBatches(ctx, entries, batchSize)
	observability.HistoryMutationsTotal.WithLabelValues("create", "import").Add(float64(n))
	if err != nil {
		return n, fmt.Errorf("import entries: %w", err)
	}
	return n, nil
}

func (s *HistoryService) ListForUser(ctx context.Context, userID uint) ([]repository.WeatherEntry, error) {
	return s.entries.ListByUser(ctx, userID)
}

func (s *HistoryService) ListAll(ctx context.Context) ([]repository.WeatherEntry, error) {
	return s.entries.ListAll(ctx)
}

// Get returns any entry by id.
func (s *HistoryService) Get(ctx context.Context, id uint) (repository.WeatherEntry, error) {
	e, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.WeatherEntry{}, ErrNotFound
		}
		return repository.WeatherEntry{}, fmt.Errorf("find entry: %w", err)
	}
	return e, nil
}

// GetOwned returns the entry only if userID owns it. Entries of other users are reported as ErrNotFound.
func (s *HistoryService) GetOwned(ctx context.Context, userID, id uint) (repository.WeatherEntry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return repository.WeatherEntry{}, err
	}
	if !e.Owned(userID) {
		return repository.WeatherEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *HistoryService) UpdateOwned(ctx context.Context, userID, id uint, u EntryUpdate) (repository.WeatherEntry, error) {
	e, err := s.GetOwned(ctx, userID, id)
	if err != nil {
		return repository.WeatherEntry{}, err
	}
	return s.apply(ctx, e, u, "user")
}

// Update edits any entry. Used by admins.
func (s *HistoryService) Update(ctx context.Context, id uint, u EntryUpdate) (repository.WeatherEntry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return repository.WeatherEntry{}, err
	}
	return s.apply(ctx, e, u, "admin")
}

func (s *HistoryService) apply(ctx context.Context, e repository.WeatherEntry, u EntryUpdate, actor string) (repository.WeatherEntry, error) {
	e.City = u.City
	e.Temperature = u.Temperature
	e.Description = u.Description
	if u.Timestamp != nil {
		e.Timestamp = u.Timestamp.UTC()
	}
	if err := s.entries.Update(ctx, &e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.WeatherEntry{}, ErrNotFound
		}
		return repository.WeatherEntry{}, fmt.Errorf("update entry: %w", err)
	}
	observability.HistoryMutationsTotal.WithLabelValues("update", actor).Inc()
	observability.LoggerFrom(ctx).Info("entry updated", zap.Uint("entry_id", e.ID), zap.String("actor", actor))
	return e, nil
}

func (s *HistoryService) DeleteOwned(ctx context.Context, userID, id uint) error {
	if _, err := s.GetOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.remove(ctx, id, "user")
}

// Delete removes any entry. Used by admins.
func (s *HistoryService) Delete(ctx context.Context, id uint) error {
	return s.remove(ctx, id, "admin")
}

func (s *HistoryService) remove(ctx context.Context, id uint, actor string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	observability.HistoryMutationsTotal.WithLabelValues("delete", actor).Inc()
	observability.LoggerFrom(ctx).Info("entry deleted", zap.Uint("entry_id", id), zap.String("actor", actor))
	return nil
}
