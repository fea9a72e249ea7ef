package persistence

import (
	"encoding/json"
	"log/slog"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Flusher writes dirty-record batches off the tick path. EnqueueBatch
// serializes synchronously on the caller's goroutine, so the simulation can
// keep mutating the live structs; the actual SQLite writes run behind a
// buffered channel. EnqueueBatch and Close must run on the same goroutine.
type Flusher struct {
	db      *DB
	batches chan batch
	done    chan struct{}

	// backlog holds serialized batches that found the channel full. They
	// re-queue ahead of the next batch; nothing here touches SQLite on the
	// enqueue path.
	backlog []batch
}

// NewFlusher starts the background writer.
func NewFlusher(db *DB) *Flusher {
	fl := &Flusher{
		db:      db,
		batches: make(chan batch, 64),
		done:    make(chan struct{}),
	}
	go fl.run()
	return fl
}

// EnqueueBatch snapshots the dirty records and queues them for writing. A
// nil fleet entry marks a dissolved fleet for deletion. When the queue is
// full the batch is deferred to a later enqueue rather than dropped; the
// caller's goroutine never blocks on a write.
func (fl *Flusher) EnqueueBatch(tick uint64, players []*player.Player, fleets map[uint64]*fleet.Fleet, sectors []*universe.Sector) {
	if len(players) == 0 && len(fleets) == 0 && len(sectors) == 0 {
		// Still record the tick so restarts resume close to where they left.
		if tick%60 != 0 {
			return
		}
	}

	b := batch{tick: tick}
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			slog.Error("marshal player", "player", p.ID, "err", err)
			continue
		}
		b.players = append(b.players, playerRow{ID: p.ID, Name: p.Name, Data: data})
	}
	for id, f := range fleets {
		if f == nil {
			b.deletedFleets = append(b.deletedFleets, id)
			continue
		}
		data, err := json.Marshal(f)
		if err != nil {
			slog.Error("marshal fleet", "fleet", id, "err", err)
			continue
		}
		b.fleets = append(b.fleets, fleetRow{ID: id, Owner: f.Owner, Data: data})
	}
	for _, s := range sectors {
		data, err := json.Marshal(s)
		if err != nil {
			slog.Error("marshal sector", "sector", s.Coord, "err", err)
			continue
		}
		b.sectors = append(b.sectors, sectorRow{Q: s.Coord.Q, R: s.Coord.R, Data: data})
	}

	if len(fl.backlog) == 0 {
		select {
		case fl.batches <- b:
			return
		default:
		}
	}
	fl.backlog = append(fl.backlog, b)
	for len(fl.backlog) > 0 {
		select {
		case fl.batches <- fl.backlog[0]:
			fl.backlog = fl.backlog[1:]
		default:
			slog.Warn("flush queue full, deferring batch",
				"tick", tick, "deferred", len(fl.backlog))
			return
		}
	}
}

func (fl *Flusher) run() {
	defer close(fl.done)
	for b := range fl.batches {
		if err := fl.db.writeBatch(b); err != nil {
			slog.Error("batch write failed", "tick", b.tick, "err", err)
		}
	}
}

// Close drains the queue and stops the writer. Call after the engine has
// stopped so no further batches arrive; deferred batches may block here,
// off the tick path.
func (fl *Flusher) Close() {
	for _, b := range fl.backlog {
		fl.batches <- b
	}
	fl.backlog = nil
	close(fl.batches)
	<-fl.done
}
