package service

import "errors"

var (
	ErrReservedEmail      = errors.New("this email is reserved")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrNotFound           = errors.New("not found")
)
