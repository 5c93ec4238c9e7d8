//go:build !gocv

package camera

import (
	"errors"
	"log/slog"
)

// ErrGoCVUnavailable is returned when the gocv backend is selected in a
// build without the gocv tag.
var ErrGoCVUnavailable = errors.New("camera backend gocv requires building with -tags gocv")

func newGoCVSource(*slog.Logger) (Source, error) {
	return nil, ErrGoCVUnavailable
}
