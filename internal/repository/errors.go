package repository

import "github.com/kjstillabower/weatherlog/internal/db"

var (
	ErrNotFound  = db.ErrNotFound
	ErrDuplicate = db.ErrDuplicate
)
