// Command voidlanes runs the authoritative universe simulation server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hotschmoe/voidlanes/internal/api"
	"github.com/hotschmoe/voidlanes/internal/config"
	"github.com/hotschmoe/voidlanes/internal/engine"
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/persistence"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/transport/ws"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("bad configuration", "err", err)
		os.Exit(1)
	}
	slog.Info("voidlanes starting", "seed", cfg.Seed, "addr", cfg.ListenAddr, "db", cfg.DBPath)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// ── World assembly ────────────────────────────────────────────────
	gen := universe.NewGenerator(cfg.Seed)
	store := universe.NewStore(gen)
	store.RegenWindow = cfg.RegenWindow
	fleets := fleet.NewRegistry()
	players := player.NewRegistry()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := engine.NewSimulation(store, fleets, players, rng)

	if db.HasWorldState() {
		if err := reload(db, sim); err != nil {
			slog.Error("failed to reload world state", "err", err)
			os.Exit(1)
		}
		slog.Info("world state reloaded",
			"tick", sim.Tick(), "players", players.Count(), "fleets", fleets.Count())
	} else {
		slog.Info("fresh universe", "seed", cfg.Seed)
	}

	flusher := persistence.NewFlusher(db)
	sim.SetPersister(flusher)

	hub := ws.NewHub()
	sim.SetBroadcaster(hub)

	// ── HTTP front: websocket upgrade + observation API ───────────────
	mux := http.NewServeMux()
	wsServer := ws.NewServer(sim, hub, cfg.TickInterval)
	mux.HandleFunc("/ws", wsServer.Handler())
	api.NewServer(sim, hub, cfg.APIRate, cfg.APIBurst).Register(mux)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	// ── Heartbeat ─────────────────────────────────────────────────────
	eng := engine.NewEngine(sim)
	eng.Interval = cfg.TickInterval

	engineErr := make(chan error, 1)
	go func() { engineErr <- eng.Run() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		slog.Info("shutting down", "signal", s)
		eng.Stop()
	case err := <-engineErr:
		if err != nil {
			slog.Error("engine halted", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	// Final save: everything still resident and modified.
	flusher.EnqueueBatch(sim.Tick(), players.All(), allFleets(fleets), store.ModifiedSectors())
	flusher.Close()
	slog.Info("world saved", "tick", sim.Tick())
}

// reload installs persisted records into the fresh registries.
func reload(db *persistence.DB, sim *engine.Simulation) error {
	loadedPlayers, err := db.LoadPlayers()
	if err != nil {
		return err
	}
	for _, p := range loadedPlayers {
		sim.Players.Install(p)
	}

	loadedFleets, err := db.LoadFleets()
	if err != nil {
		return err
	}
	for _, f := range loadedFleets {
		sim.Fleets.Install(f)
	}

	loadedSectors, err := db.LoadSectors()
	if err != nil {
		return err
	}
	for _, s := range loadedSectors {
		sim.Store.Install(s)
	}

	tick, err := db.LastTick()
	if err != nil {
		return err
	}
	sim.SetTick(tick)
	return nil
}

func allFleets(reg *fleet.Registry) map[uint64]*fleet.Fleet {
	out := make(map[uint64]*fleet.Fleet, reg.Count())
	for _, f := range reg.All() {
		out[f.ID] = f
	}
	return out
}
