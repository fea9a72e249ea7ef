package protocol

// Error codes attached to reject messages and error events.
//
// Validation errors reject a command synchronously with no state change.
// Consistency errors mean the command's referent vanished between queue and
// apply; the command is dropped with an informational event.
const (
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownCmd   = "E_UNKNOWN_COMMAND"
	ErrUnknownFleet = "E_UNKNOWN_FLEET"
	ErrNotYours     = "E_NOT_YOURS"
	ErrNoFuel       = "E_NO_FUEL"
	ErrNoEdge       = "E_NO_EDGE"
	ErrBadTarget    = "E_BAD_TARGET"
	ErrNotIdle      = "E_NOT_IDLE"
	ErrNoResources  = "E_NO_RESOURCES"
	ErrCantAfford   = "E_CANT_AFFORD"
	ErrGone         = "E_GONE"
	ErrRule         = "E_RULE"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]bool{
	ErrBadRequest:   true,
	ErrUnknownCmd:   true,
	ErrUnknownFleet: true,
	ErrNotYours:     true,
	ErrNoFuel:       true,
	ErrNoEdge:       true,
	ErrBadTarget:    true,
	ErrNotIdle:      true,
	ErrNoResources:  true,
	ErrCantAfford:   true,
	ErrGone:         true,
	ErrRule:         true,
	ErrInternal:     true,
}

// IsKnownCode reports whether a code is part of the wire contract.
func IsKnownCode(code string) bool {
	return knownCodes[code]
}
