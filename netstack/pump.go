package netstack

import (
	"log/slog"
	"time"
)

const (
	pumpIdle = 5 * time.Millisecond
	// The first link error, and every errReportEvery-th after it, is also
	// logged at Error level.
	errReportEvery = 100
)

// pump moves frames between the radio and the IP stack.
type pump struct {
	poll        func() (bool, error)
	encapsulate func(buf []byte) (int, error)
	send        func(frame []byte) error
	log         *slog.Logger
	buf         []byte

	errs uint64
}

func (p *pump) run() {
	for {
		if !p.step() {
			time.Sleep(pumpIdle)
		}
	}
}

// step polls the radio for one frame and sends at most one frame from the
// stack. It reports whether anything moved. Errors are logged, not returned.
func (p *pump) step() bool {
	got, err := p.poll()
	if err != nil {
		p.fail("poll", err)
	}
	n, err := p.encapsulate(p.buf)
	if err != nil {
		p.fail("encapsulate", err)
	}
	if n > 0 {
		if err := p.send(p.buf[:n]); err != nil {
			p.fail("send", err)
		}
	}
	return got || n > 0
}

func (p *pump) fail(stage string, err error) {
	p.errs++
	p.log.Debug("netstack:pump", slog.String("stage", stage), slog.String("err", err.Error()))
	if p.errs%errReportEvery == 1 {
		p.log.Error("netstack:link-errors",
			slog.String("stage", stage),
			slog.String("err", err.Error()),
			slog.Uint64("total", p.errs),
		)
	}
}
