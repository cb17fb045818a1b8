package service

import (
	"context"
	"fmt"

	"github.com/kjstillabower/weatherlog/internal/repository"
)

const (
	recentUsersLimit   = 5
	recentEntriesLimit = 10
)

// Overview is the admin dashboard summary.
type Overview struct {
	UserCount     int64
	EntryCount    int64
	RecentUsers   []repository.User
	RecentEntries []repository.WeatherEntry
	Users         []repository.User
}

// UserRow is one line of the admin user table.
type UserRow struct {
	repository.User
	Entries int64
}

// AdminService builds the read models behind the admin pages.
type AdminService struct {
	users   UserStore
	entries EntryStore
}

func NewAdminService(users UserStore, entries EntryStore) *AdminService {
	return &AdminService{users: users, entries: entries}
}

func (s *AdminService) Overview(ctx context.Context) (Overview, error) {
	var (
		o   Overview
		err error
	)
	if o.UserCount, err = s.users.Count(ctx); err != nil {
		return Overview{}, fmt.Errorf("count users: %w", err)
	}
	if o.EntryCount, err = s.entries.Count(ctx); err != nil {
		return Overview{}, fmt.Errorf("count entries: %w", err)
	}
	if o.RecentUsers, err = s.users.Recent(ctx, recentUsersLimit); err != nil {
		return Overview{}, fmt.Errorf("recent users: %w", err)
	}
	if o.RecentEntries, err = s.entries.Recent(ctx, recentEntriesLimit); err != nil {
		return Overview{}, fmt.Errorf("recent entries: %w", err)
	}
	if o.Users, err = s.users.List(ctx); err != nil {
		return Overview{}, fmt.Errorf("list users: %w", err)
	}
	return o, nil
}

// Users lists every account with its history size.
func (s *AdminService) Users(ctx context.Context) ([]UserRow, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	counts, err := s.entries.CountByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{User: u, Entries: counts[u.ID]})
	}
	return rows, nil
}
