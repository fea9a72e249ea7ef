package engine

import (
	"log/slog"
	"time"
)

// summaryEvery is the tick cadence of the periodic state log line.
const summaryEvery = 60

// Engine drives the simulation at a fixed real-time heartbeat. One tick is
// one wall-clock second; a slow step never compounds, the next tick simply
// fires at the next interval boundary.
type Engine struct {
	sim      *Simulation
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewEngine wraps a simulation in its heartbeat.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		sim:      sim,
		Interval: time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks, stepping the simulation until Stop is called or a step reports
// a fatal consistency error. The returned error is nil on a clean stop.
func (e *Engine) Run() error {
	defer close(e.done)
	slog.Info("engine started", "tick", e.sim.Tick(), "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			slog.Info("engine stopped", "tick", e.sim.Tick())
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := e.sim.RunStep(); err != nil {
				slog.Error("simulation state corrupt, halting", "tick", e.sim.Tick(), "err", err)
				return err
			}
			if elapsed := time.Since(start); elapsed > e.Interval {
				slog.Warn("tick overran interval", "tick", e.sim.Tick(), "elapsed", elapsed)
			}
			if tick := e.sim.Tick(); tick%summaryEvery == 0 {
				slog.Info("world state",
					"tick", tick,
					"players", e.sim.Players.Count(),
					"fleets", e.sim.Fleets.Count(),
					"engagements", len(e.sim.Combat.Active()),
					"sectors", e.sim.Store.CachedCount())
			}
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight step to finish.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.done
}
