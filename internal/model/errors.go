package model

import "errors"

// Structural errors. They indicate caller misuse and are returned immediately;
// data-quality problems never use them.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoPrimaryKey         = errors.New("table has no primary key")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrCycle                = errors.New("dependency cycle")
)
