//go:build tinygo && wifi

package main

import (
	"log/slog"
	"time"

	"github.com/harveysanders/rgblcd/netstack"
	"github.com/harveysanders/rgblcd/report"
)

const hostname = "hellolcd"

// Set with -ldflags "-X main.brokerAddr=host:port"
var brokerAddr = "10.0.0.9:1883"

// announce joins WiFi and publishes g once. Failures are logged; the
// display is already up so they do not stop the program.
func announce(logger *slog.Logger, g Greeting, sinceBoot time.Duration) {
	stack, err := netstack.Join(netstack.Config{
		Hostname: hostname,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("join network", slog.Any("reason", err))
		return
	}

	c := report.Client{
		ID:         hostname,
		Logger:     logger,
		Timeout:    5 * time.Second,
		TCPBufSize: 2030, // MTU - ethhdr - iphdr - tcphdr
	}
	err = c.Publish(stack.TCP(), brokerAddr, report.Report{
		Addresses:   report.HexAddresses(g.Addresses),
		Text:        g.Text,
		RGB:         g.RGB,
		Cursor:      g.Cursor,
		Blink:       g.Blink,
		SinceBootNS: sinceBoot,
	})
	if err != nil {
		logger.Error("publish report", slog.Any("reason", err))
	}
}
