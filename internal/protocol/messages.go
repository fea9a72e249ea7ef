// Package protocol defines the JSON wire contract between the simulation
// server and its clients (terminal UIs and machine agents). The structs
// here are deliberately free of engine types so both sides of the wire can
// import them.
package protocol

// Message types, client → server.
const (
	TypeHello   = "hello"
	TypeCommand = "command"
	TypeResync  = "resync"
)

// Message types, server → client.
const (
	TypeWelcome  = "welcome"
	TypeSnapshot = "snapshot"
	TypeDelta    = "delta"
	TypeReject   = "reject"
)

// Command names carried on the per-tick command channel.
const (
	CmdMove         = "move"
	CmdHarvest      = "harvest"
	CmdAttack       = "attack"
	CmdMerge        = "merge"
	CmdRecall       = "recall"
	CmdPolicyUpdate = "policy_update"
	CmdBuild        = "build"
	CmdBuildShip    = "build_ship"
	CmdResearch     = "research"
	CmdCancelBuild  = "cancel_build"
)

// Base carries the discriminator for incoming messages.
type Base struct {
	Type string `json:"type"`
}

// HexRef is a wire-level hex coordinate.
type HexRef struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// RuleSpec is one condition→action pair in a policy_update.
type RuleSpec struct {
	Condition string `json:"condition"`
	Action    string `json:"action"`
}

// HelloMsg opens a session. Returning players pass their id; new players
// register by name.
type HelloMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

// WelcomeMsg acknowledges a session.
type WelcomeMsg struct {
	Type         string `json:"type"`
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
	SessionID    string `json:"session_id"`
	Tick         uint64 `json:"tick"`
	TickInterval string `json:"tick_interval"`
	Homeworld    HexRef `json:"homeworld"`
}

// CommandMsg is one queued player command. Unused fields stay zero; the
// server validates per command name. Last command wins per fleet per tick.
type CommandMsg struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`

	Name    string `json:"name"`
	FleetID uint64 `json:"fleet_id,omitempty"`

	Direction   string     `json:"direction,omitempty"`
	Target      *HexRef    `json:"target,omitempty"`
	Resource    string     `json:"resource,omitempty"`
	TargetFleet uint64     `json:"target_fleet,omitempty"`
	Rules       []RuleSpec `json:"rules,omitempty"`
	Class       string     `json:"class,omitempty"`
	Count       int        `json:"count,omitempty"`
	JobID       uint64     `json:"job_id,omitempty"`
}

// RejectMsg is the synchronous response to a command that failed validation
// before reaching the queue (malformed JSON, unknown command name).
type RejectMsg struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ShipView is the wire form of one ship.
type ShipView struct {
	ID     uint64  `json:"id"`
	Class  string  `json:"class"`
	Hull   float64 `json:"hull"`
	Shield float64 `json:"shield"`
}

// FleetView is the wire form of one fleet.
type FleetView struct {
	ID       uint64             `json:"id"`
	Owner    string             `json:"owner"`
	Location HexRef             `json:"location"`
	State    string             `json:"state"`
	Fuel     float64            `json:"fuel"`
	FuelMax  float64            `json:"fuel_max"`
	Cargo    map[string]float64 `json:"cargo"`
	Ships    []ShipView         `json:"ships"`
	Rules    []RuleSpec         `json:"rules,omitempty"`
}

// SectorView is the wire form of one discovered sector.
type SectorView struct {
	Coord     HexRef            `json:"coord"`
	Terrain   string            `json:"terrain"`
	Zone      string            `json:"zone"`
	Densities map[string]string `json:"densities,omitempty"`
	OpenEdges []string          `json:"open_edges"`
	Hostiles  bool              `json:"hostiles"`
}

// BuildJobView is one queued homeworld job.
type BuildJobView struct {
	ID       uint64 `json:"id"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail,omitempty"`
	DoneTick uint64 `json:"done_tick"`
}

// HomeworldView is the wire form of the player's homeworld state.
type HomeworldView struct {
	Coord         HexRef             `json:"coord"`
	Stocks        map[string]float64 `json:"stocks"`
	MineLevels    map[string]int     `json:"mine_levels"`
	ResearchLevel int                `json:"research_level"`
	BuildQueue    []BuildJobView     `json:"build_queue,omitempty"`
}

// SnapshotMsg is the full-state payload sent on connect or resync.
type SnapshotMsg struct {
	Type      string        `json:"type"`
	Tick      uint64        `json:"tick"`
	Homeworld HomeworldView `json:"homeworld"`
	Fleets    []FleetView   `json:"fleets"`
	Sectors   []SectorView  `json:"sectors"`
}

// DeltaMsg is the per-tick changed-fields-only payload for one player.
type DeltaMsg struct {
	Type      string         `json:"type"`
	Tick      uint64         `json:"tick"`
	Homeworld *HomeworldView `json:"homeworld,omitempty"`
	Fleets    []FleetView    `json:"fleets,omitempty"`
	Removed   []uint64       `json:"removed_fleets,omitempty"`
	Sectors   []SectorView   `json:"sectors,omitempty"`
	Events    []Event        `json:"events,omitempty"`
}
