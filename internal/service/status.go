package service

import (
	"errors"
	"os"
)

// Status returns the definition path and whether it exists.
func Status(label string) (string, bool) {
	path := Path(label)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return path, false
}

// Remove deletes the definition for label if present.
func Remove(label string) (string, error) {
	path := Path(label)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return path, err
	}
	return path, nil
}
