package database

import "errors"

var (
	// ErrInvalidConfig indicates a configuration that cannot open a
	// connection, typically a missing DSN.
	ErrInvalidConfig = errors.New("invalid database config")

	// ErrUnsupportedDriver indicates a driver outside mysql, postgres,
	// sqlite.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
