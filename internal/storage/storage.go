package storage

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)
