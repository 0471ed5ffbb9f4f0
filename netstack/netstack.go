//go:build tinygo

// Package netstack puts a CYW43439 board (Pico W and friends) on a WiFi
// network with an lneto IP stack, for programs that need one short-lived
// TCP connection.
package netstack

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"
)

const (
	mtu         = cyw43439.MTU
	dhcpTimeout = 3 * time.Second
	arpTimeout  = 500 * time.Millisecond
	retryPoll   = 50 * time.Millisecond
)

// Set with -ldflags "-X github.com/harveysanders/rgblcd/netstack.ssid=..."
var (
	ssid string
	pass string
)

// Config selects the network and how the stack presents itself on it.
type Config struct {
	// SSID and Password default to the values set at link time.
	SSID     string
	Password string
	// Hostname is sent in the DHCP request. Required.
	Hostname string
	// MaxTCPConns defaults to 1.
	MaxTCPConns int
	Logger      *slog.Logger
}

// Stack is a joined radio with a DHCP-configured IP stack. Its packets are
// pumped by a goroutine started in Join.
type Stack struct {
	s   xnet.StackAsync
	dev *cyw43439.Device
	log *slog.Logger
}

// Join brings up the radio, joins the network once, starts pumping packets
// and leases an address over DHCP. Nothing is retried.
func Join(cfg Config) (*Stack, error) {
	if cfg.SSID == "" {
		cfg.SSID, cfg.Password = ssid, pass
	}
	if cfg.SSID == "" {
		return nil, errors.New("empty ssid; set it with -ldflags -X")
	}
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	if cfg.MaxTCPConns < 1 {
		cfg.MaxTCPConns = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)
	if err := dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, errors.New("wifi init: " + err.Error())
	}
	logger.Info("wifi:radio-up", slog.Duration("took", time.Since(start)))

	logger.Info("wifi:joining", slog.String("ssid", cfg.SSID), slog.Bool("open", cfg.Password == ""))
	if err := dev.JoinWPA2(cfg.SSID, cfg.Password); err != nil {
		return nil, errors.New("wifi join " + cfg.SSID + ": " + err.Error())
	}
	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("read mac: " + err.Error())
	}
	logger.Info("wifi:joined", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	st := &Stack{dev: dev, log: logger}
	err = st.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     cfg.MaxTCPConns,
		RandSeed:        time.Since(start).Nanoseconds(),
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset: " + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return st.s.Demux(pkt, 0)
	})

	p := &pump{
		poll: dev.PollOne,
		encapsulate: func(buf []byte) (int, error) {
			return st.s.Encapsulate(buf, -1, 0)
		},
		send: dev.SendEth,
		log:  logger,
		buf:  make([]byte, mtu),
	}
	go p.run()

	if err := st.lease(); err != nil {
		return nil, err
	}
	return st, nil
}

// lease runs DHCP and points the stack at the router it hands out.
func (st *Stack) lease() error {
	rstack := st.s.StackRetrying(retryPoll)

	st.log.Info("dhcp:starting")
	res, err := rstack.DoDHCPv4([4]byte{}, dhcpTimeout, 1)
	if err != nil {
		return errors.New("dhcp: " + err.Error())
	}
	if err := st.s.AssimilateDHCPResults(res); err != nil {
		return errors.New("dhcp results: " + err.Error())
	}
	gw, err := rstack.DoResolveHardwareAddress6(res.Router, arpTimeout, 1)
	if err != nil {
		return errors.New("resolve router " + res.Router.String() + ": " + err.Error())
	}
	st.s.SetGateway6(gw)

	st.log.Info("dhcp:done",
		slog.String("addr", res.AssignedAddr.String()),
		slog.String("router", res.Router.String()),
		slog.Uint64("lease_sec", uint64(res.TLease)),
	)
	return nil
}

// TCP returns the stack for dialing and DNS lookups.
func (st *Stack) TCP() *xnet.StackAsync { return &st.s }

// Addr is the leased address.
func (st *Stack) Addr() netip.Addr { return st.s.Addr() }
