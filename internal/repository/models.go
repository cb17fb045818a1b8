package repository

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Username and email are unique.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:50;uniqueIndex;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

func (User) TableName() string { return "users" }

// WeatherEntry is one recorded lookup. UserID is nil for bulk-imported rows;
// entries are removed with their owner.
type WeatherEntry struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      *uint `gorm:"index"`
	User        *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	City        string `gorm:"size:100;index;not null"`
	Temperature float64
	Description string `gorm:"size:255"`
	Humidity    int
	WindSpeed   float64
	Timestamp   time.Time `gorm:"index;not null"`
}

func (WeatherEntry) TableName() string { return "user_weather" }

func (e *WeatherEntry) BeforeCreate(tx *gorm.DB) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = tx.NowFunc()
	}
	return nil
}

// Owned reports whether the entry belongs to userID.
func (e WeatherEntry) Owned(userID uint) bool {
	return e.UserID != nil && *e.UserID == userID
}

// AutoMigrate creates or updates both tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &WeatherEntry{})
}
