package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kjstillabower/weatherlog/internal/db"
)

// newestFirst orders by timestamp then id, both descending. The column name is
// quoted because timestamp is a keyword in postgres.
var newestFirst = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "timestamp"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}}

type WeatherRepository struct {
	db *gorm.DB
}

func NewWeatherRepository(gdb *gorm.DB) *WeatherRepository {
	if gdb == nil {
		panic("database connection cannot be nil for WeatherRepository")
	}
	return &WeatherRepository{db: gdb}
}

func (r *WeatherRepository) Create(ctx context.Context, e *WeatherEntry) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(e).Error; err != nil {
		return fmt.Errorf("gorm: create weather entry: %w", db.Translate(err))
	}
	return nil
}

// CreateInBatches inserts entries batchSize rows per statement and returns the number inserted.
func (r *WeatherRepository) CreateInBatches(ctx context.Context, entries []WeatherEntry, batchSize int) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	res := r.db.WithContext(ctx).Omit("User").CreateInBatches(entries, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: batch insert weather entries: %w", db.Translate(res.Error))
	}
	return int(res.RowsAffected), nil
}

func (r *WeatherRepository) FindByID(ctx context.Context, id uint) (WeatherEntry, error) {
	var e WeatherEntry
	if err := r.db.WithContext(ctx).Preload("User").First(&e, id).Error; err != nil {
		return WeatherEntry{}, fmt.Errorf("gorm: find weather entry %d: %w", id, db.Translate(err))
	}
	return e, nil
}

// ListByUser returns userID's entries, newest first.
func (r *WeatherRepository) ListByUser(ctx context.Context, userID uint) ([]WeatherEntry, error) {
	var entries []WeatherEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(newestFirst).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list entries for user %d: %w", userID, err)
	}
	return entries, nil
}

// ListAll returns every entry with its owner loaded, newest first.
func (r *WeatherRepository) ListAll(ctx context.Context) ([]WeatherEntry, error) {
	return r.recent(ctx, -1)
}

// Recent returns the n newest entries with owners loaded.
func (r *WeatherRepository) Recent(ctx context.Context, n int) ([]WeatherEntry, error) {
	return r.recent(ctx, n)
}

func (r *WeatherRepository) recent(ctx context.Context, n int) ([]WeatherEntry, error) {
	var entries []WeatherEntry
	err := r.db.WithContext(ctx).
		Preload("User").
		Order(newestFirst).
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list entries: %w", err)
	}
	return entries, nil
}

func (r *WeatherRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&WeatherEntry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("gorm: count entries: %w", err)
	}
	return n, nil
}

// CountByUser returns entry counts keyed by owner id. Ownerless rows are not included.
func (r *WeatherRepository) CountByUser(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		UserID uint
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&WeatherEntry{}).
		Select("user_id, COUNT(*) AS n").
		Where("user_id IS NOT NULL").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: count entries by user: %w", err)
	}
	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.N
	}
	return out, nil
}

// Update writes the editable columns of e.
func (r *WeatherRepository) Update(ctx context.Context, e *WeatherEntry) error {
	res := r.db.WithContext(ctx).Model(e).Omit("User").
		Select("city", "temperature", "description", "timestamp").
		Updates(e)
	if res.Error != nil {
		return fmt.Errorf("gorm: update weather entry %d: %w", e.ID, db.Translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("gorm: update weather entry %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (r *WeatherRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&WeatherEntry{}, id)
	if res.Error != nil {
		return fmt.Errorf("gorm: delete weather entry %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("gorm: delete weather entry %d: %w", id, ErrNotFound)
	}
	return nil
}
