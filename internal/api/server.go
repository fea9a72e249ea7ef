// Package api serves read-only HTTP observation endpoints beside the
// websocket channel: liveness, world stats, and public universe probes.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hotschmoe/voidlanes/internal/engine"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Connections reports live session counts; satisfied by the ws hub.
type Connections interface {
	Connected() int
}

// Server exposes world state over plain HTTP. Everything here is GET and
// public; mutation happens only on the websocket command channel.
type Server struct {
	Sim   *engine.Simulation
	Conns Connections

	started time.Time
	limiter *IPRateLimiter
}

// NewServer builds the observation API with the given per-IP rate limit.
func NewServer(sim *engine.Simulation, conns Connections, ratePerSec, burst int) *Server {
	return &Server{
		Sim:     sim,
		Conns:   conns,
		started: time.Now(),
		limiter: NewIPRateLimiter(ratePerSec, burst),
	}
}

// Register mounts the endpoints on a mux shared with the websocket upgrade.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/status", s.limiter.Middleware(s.handleStatus))
	mux.HandleFunc("/api/v1/sector", s.limiter.Middleware(s.handleSector))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Sim.SimStats()
	writeJSON(w, map[string]any{
		"tick":           stats.Tick,
		"players":        stats.Players,
		"fleets":         stats.Fleets,
		"engagements":    stats.Engagements,
		"sectors_cached": stats.SectorsCached,
		"connected":      s.Conns.Connected(),
		"uptime":         time.Since(s.started).Round(time.Second).String(),
	})
}

// handleSector answers public generation facts about a coordinate: terrain,
// zone, and traversable edges. Live state (densities, hostiles, occupants)
// stays behind the fog of war on the websocket channel.
func (s *Server) handleSector(w http.ResponseWriter, r *http.Request) {
	q, errQ := strconv.Atoi(r.URL.Query().Get("q"))
	rr, errR := strconv.Atoi(r.URL.Query().Get("r"))
	if errQ != nil || errR != nil {
		http.Error(w, "q and r query parameters required", http.StatusBadRequest)
		return
	}
	coord := universe.HexCoord{Q: q, R: rr}
	content := s.Sim.Store.Generator().Generate(coord)

	var edges []string
	for i, open := range content.OpenEdges {
		if open {
			edges = append(edges, universe.Direction(i).String())
		}
	}
	writeJSON(w, map[string]any{
		"q":          q,
		"r":          rr,
		"zone":       coord.Zone().String(),
		"distance":   universe.Distance(coord, universe.Hub),
		"terrain":    universe.TerrainName(content.Terrain),
		"open_edges": edges,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
