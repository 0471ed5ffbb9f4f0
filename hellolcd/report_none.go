//go:build !(tinygo && wifi)

package main

import (
	"log/slog"
	"time"
)

// announce is a no-op without the wifi build tag.
func announce(*slog.Logger, Greeting, time.Duration) {}
