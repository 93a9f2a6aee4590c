//go:build noprom

package metrics

import "errors"

// ErrNoPrometheus is returned by InitFromEnv in builds tagged noprom.
var ErrNoPrometheus = errors.New("metrics: built without prometheus support (noprom)")

func enablePrometheus(addr string) error { return ErrNoPrometheus }
