package server

import (
	"context"
	"log"
	"time"
)

// streamTicker advances the world by one control-loop step.
type streamTicker interface {
	tick()
}

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

// tickEngine drives the control loop. Ticks that arrive while a step is
// still running are coalesced by time.Ticker, so a slow step delays the
// next one instead of queueing a burst.
type tickEngine struct {
	target    streamTicker
	interval  time.Duration
	logger    *log.Logger
	newTicker tickerFactory
	now       timeSource

	ticks    uint64
	overruns uint64
}

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

func newTickEngine(target streamTicker, interval time.Duration, logger *log.Logger) *tickEngine {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	if logger == nil {
		logger = log.New(log.Writer(), "tick ", log.LstdFlags|log.Lmicroseconds)
	}
	return &tickEngine{
		target:    target,
		interval:  interval,
		logger:    logger,
		newTicker: defaultTickerFactory(),
		now:       time.Now,
	}
}

// run steps the target until ctx is cancelled.
func (e *tickEngine) run(ctx context.Context) {
	if e == nil || e.target == nil {
		return
	}
	if e.newTicker == nil {
		e.newTicker = defaultTickerFactory()
	}
	if e.now == nil {
		e.now = time.Now
	}

	tickerC, stop := e.newTicker(e.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tickerC:
			start := e.now()
			e.target.tick()
			e.ticks++
			if elapsed := e.now().Sub(start); elapsed > e.interval {
				e.overruns++
				// Log the first overrun and every hundredth after it.
				if e.overruns%100 == 1 {
					e.logger.Printf("tick took %s, budget %s (%d overruns in %d ticks)", elapsed, e.interval, e.overruns, e.ticks)
				}
			}
		}
	}
}
