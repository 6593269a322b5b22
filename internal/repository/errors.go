// Package repository holds the contracts shared by the storage adapters.
package repository

import "errors"

// ErrNotFound is returned by adapters when the requested document does not exist.
var ErrNotFound = errors.New("not found")
