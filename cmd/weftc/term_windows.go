package main

import "github.com/pkg/errors"

// setRawIO has no raw-mode implementation on Windows; menu choices fall
// back to line-buffered input (see readMenuChoice).
func setRawIO() (func(), error) {
	return nil, errors.New("raw IO not supported on this platform")
}
