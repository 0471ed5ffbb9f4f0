// Package report announces a finished display setup to an MQTT broker.
//
// A report is published once, at QoS 0, over a TCP connection dialed on an
// lneto stack. Nothing is retried: if the broker cannot be reached the
// caller logs the error and carries on.
package report

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"strconv"
	"time"

	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
	mqtt "github.com/soypat/natiu-mqtt"
)

// Topic is where reports are published.
const Topic = "rgb1602/hello"

var pubFlags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, false)

// Report describes what the program found and displayed.
type Report struct {
	Addresses   []string      `json:"addresses"`     // responding bus addresses, "0x3e" form
	Text        string        `json:"text"`          // text written to the display
	RGB         [3]uint8      `json:"rgb"`           // backlight colour
	Cursor      bool          `json:"cursor"`        // cursor visible
	Blink       bool          `json:"blink"`         // blink visible
	SinceBootNS time.Duration `json:"since_boot_ns"` // time from boot to publish
}

// HexAddresses renders bus addresses for Report.Addresses.
func HexAddresses(addrs []uint8) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = "0x" + strconv.FormatUint(uint64(a), 16)
	}
	return out
}

// Payload returns the JSON encoding of r.
func (r Report) Payload() ([]byte, error) {
	if r.Addresses == nil {
		r.Addresses = []string{}
	}
	return json.Marshal(r)
}

// Client holds the MQTT session settings used by Publish.
type Client struct {
	ID         string
	Timeout    time.Duration
	TCPBufSize int
	Logger     *slog.Logger
	Username   string // MQTT broker username (optional)
	Password   string // MQTT broker password (optional, requires Username)
}

// Publish connects to the broker at addr ("host:port"), publishes r to
// Topic and closes the connection. The stack must already have an address
// and gateway, and something must be pumping its packets.
func (c *Client) Publish(stack *xnet.StackAsync, addr string, r Report) error {
	const pollTime = 5 * time.Millisecond

	payload, err := r.Payload()
	if err != nil {
		return errors.New("encoding report: " + err.Error())
	}

	host, port, err := parseBroker(addr)
	if err != nil {
		return err
	}

	rstack := stack.StackRetrying(pollTime)

	// Try to parse as IP first, otherwise DNS lookup
	brokerAddr, err := netip.ParseAddr(host)
	if err != nil {
		c.Logger.Info("dns:resolving", slog.String("host", host))
		addrs, err := rstack.DoLookupIP(host, c.Timeout, 1)
		if err != nil {
			return errors.New("dns lookup for " + host + ": " + err.Error())
		}
		if len(addrs) == 0 {
			return errors.New("dns lookup for " + host + ": no addresses returned")
		}
		brokerAddr = addrs[0]
	}

	var conn tcp.Conn
	err = conn.Configure(tcp.ConnConfig{
		RxBuf:             make([]byte, c.TCPBufSize),
		TxBuf:             make([]byte, c.TCPBufSize),
		TxPacketQueueSize: 3,
	})
	if err != nil {
		return errors.New("tcp configure: " + err.Error())
	}
	defer closeConn(&conn, c.Logger)

	localPort := uint16(stack.Prand32()>>17) + 1024
	serverAddr := netip.AddrPortFrom(brokerAddr, port)
	c.Logger.Info("socket:dialing", slog.String("server", serverAddr.String()), slog.Uint64("localPort", uint64(localPort)))
	err = rstack.DoDialTCP(&conn, localPort, serverAddr, c.Timeout, 1)
	if err != nil {
		return errors.New("dial " + serverAddr.String() + ": " + err.Error())
	}

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 512)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, _ io.Reader) error {
			c.Logger.Info("received message", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(c.ID))
	if c.Username != "" {
		varconn.Username = []byte(c.Username)
		if c.Password != "" {
			varconn.Password = []byte(c.Password)
		}
	}

	conn.SetDeadline(time.Now().Add(c.Timeout))
	if err = client.StartConnect(&conn, &varconn); err != nil {
		return errors.New("mqtt connect: " + err.Error())
	}
	// Wait for CONNACK.
	deadline := time.Now().Add(c.Timeout)
	for !client.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if err = client.HandleNext(); err != nil {
			c.Logger.Error("mqtt:handle-next-failed", slog.String("err", err.Error()))
		}
	}
	if !client.IsConnected() {
		return errors.New("mqtt connect: timed out")
	}

	vars := mqtt.VariablesPublish{
		TopicName:        []byte(Topic),
		PacketIdentifier: uint16(stack.Prand32()),
	}
	conn.SetDeadline(time.Now().Add(c.Timeout))
	if err = client.PublishPayload(pubFlags, vars, payload); err != nil {
		return errors.New("mqtt publish: " + err.Error())
	}
	c.Logger.Info("published report",
		slog.String("topic", Topic),
		slog.Int("bytes", len(payload)),
	)
	return nil
}

// closeConn closes conn and waits briefly for the FIN exchange before
// aborting whatever is left.
func closeConn(conn *tcp.Conn, logger *slog.Logger) {
	logger.Info("tcpconn:closing")
	conn.Close()
	for i := 0; i < 50 && !conn.State().IsClosed(); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	conn.Abort()
}

// parseBroker checks a "host:port" broker address before anything is
// sent on the network.
func parseBroker(addr string) (host string, port uint16, err error) {
	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return "", 0, errors.New("parsing host:port from " + addr + ": " + err.Error())
	}
	port = parsePort(portStr)
	if port == 0 {
		return "", 0, errors.New("invalid port in " + addr)
	}
	return host, port, nil
}

// splitHostPort splits a host:port string into separate host and port components.
// Returns an error if the format is invalid.
func splitHostPort(addr string) (host, port string, err error) {
	// Find the last colon to support IPv6 addresses
	colonIdx := -1
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			colonIdx = i
			break
		}
	}

	if colonIdx == -1 {
		return "", "", errors.New("missing port in address")
	}

	host = addr[:colonIdx]
	port = addr[colonIdx+1:]

	if host == "" {
		return "", "", errors.New("empty host")
	}
	if port == "" {
		return "", "", errors.New("empty port")
	}

	return host, port, nil
}

// parsePort converts a port string to uint16.
// Returns 0 if parsing fails.
func parsePort(portStr string) uint16 {
	n, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}
