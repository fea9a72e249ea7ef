package protocol

// Event types carried in the per-tick delta's ordered event list.
const (
	EvCombatRound       = "combat_round"
	EvShipDestroyed     = "ship_destroyed"
	EvFleetDissolved    = "fleet_dissolved"
	EvResourceHarvested = "resource_harvested"
	EvDensityDowngrade  = "density_downgraded"
	EvFleetArrived      = "fleet_arrived"
	EvFleetDeparted     = "fleet_departed"
	EvNPCEncounter      = "npc_encounter"
	EvRecall            = "emergency_recall"
	EvCargoDelivered    = "cargo_delivered"
	EvBuildQueued       = "build_queued"
	EvBuildComplete     = "build_complete"
	EvPolicyError       = "policy_error"
	EvError             = "error"
	EvInfo              = "info"
)

// Event is one entry in a tick's ordered event list. Detail carries
// event-specific structure (combat round reports, harvest amounts).
type Event struct {
	Type    string `json:"type"`
	Tick    uint64 `json:"tick"`
	FleetID uint64 `json:"fleet_id,omitempty"`
	Sector  *HexRef `json:"sector,omitempty"`
	Code    string `json:"code,omitempty"` // error events
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}
