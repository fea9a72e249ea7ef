// Package fleet owns the live fleet and ship entities: class capability
// tables, the fleet state machine, and the registry that is the single
// source of truth for ship state during a tick.
package fleet

// ShipClass identifies a hull design. Behavior is data-driven: every class
// maps to a static capability profile in ClassTable.
type ShipClass uint8

const (
	ClassScout ShipClass = iota
	ClassFighter
	ClassCorvette
	ClassFreighter
	ClassHarvester
	ClassCruiser
	ClassBattleship

	NumClasses = 7
)

var classNames = [NumClasses]string{
	"scout", "fighter", "corvette", "freighter", "harvester", "cruiser", "battleship",
}

func (c ShipClass) String() string {
	if int(c) >= NumClasses {
		return "unknown"
	}
	return classNames[c]
}

// ParseClass maps a class name to its enum value.
func ParseClass(s string) (ShipClass, bool) {
	for i, name := range classNames {
		if s == name {
			return ShipClass(i), true
		}
	}
	return 0, false
}

// ClassDef holds the static capability profile for one ship class.
type ClassDef struct {
	HullMax      float64
	ShieldMax    float64
	WeaponPower  float64
	MoveTicks    int     // tick cooldown per hex traversed (higher = slower)
	CargoCap     float64 // per-ship cargo contribution
	HarvestPower float64 // per-ship extraction contribution per tick
	FuelPerHex   float64 // per-ship fuel drawn per hex moved

	// RapidFire maps target classes to the chained-attack multiplier m.
	// Continuation probability per shot is 1 - 1/m.
	RapidFire map[ShipClass]float64
}

// ClassTable is the capability matrix, indexed by ShipClass.
var ClassTable = [NumClasses]ClassDef{
	// Scout: fast, fragile, cheap eyes.
	{HullMax: 40, ShieldMax: 10, WeaponPower: 5, MoveTicks: 1, CargoCap: 10, FuelPerHex: 2},
	// Fighter: the line skirmisher.
	{HullMax: 80, ShieldMax: 25, WeaponPower: 25, MoveTicks: 2, CargoCap: 15, FuelPerHex: 4,
		RapidFire: map[ShipClass]float64{ClassScout: 2}},
	// Corvette: escort hull, screens the haulers.
	{HullMax: 150, ShieldMax: 60, WeaponPower: 45, MoveTicks: 2, CargoCap: 30, FuelPerHex: 6},
	// Freighter: bulk cargo, token mining rig.
	{HullMax: 120, ShieldMax: 30, WeaponPower: 5, MoveTicks: 3, CargoCap: 400, HarvestPower: 0.5, FuelPerHex: 8},
	// Harvester: the dedicated extraction platform.
	{HullMax: 100, ShieldMax: 40, WeaponPower: 10, MoveTicks: 3, CargoCap: 150, HarvestPower: 2.5, FuelPerHex: 6},
	// Cruiser: anti-fighter workhorse.
	{HullMax: 400, ShieldMax: 150, WeaponPower: 120, MoveTicks: 3, CargoCap: 60, FuelPerHex: 12,
		RapidFire: map[ShipClass]float64{ClassScout: 3, ClassFighter: 3, ClassCorvette: 1.5}},
	// Battleship: slow, brutal.
	{HullMax: 900, ShieldMax: 350, WeaponPower: 260, MoveTicks: 4, CargoCap: 100, FuelPerHex: 20,
		RapidFire: map[ShipClass]float64{ClassScout: 4, ClassFighter: 3, ClassFreighter: 3, ClassHarvester: 3}},
}

// Def returns the capability profile for a class. Out-of-range classes fall
// back to the scout profile.
func Def(c ShipClass) ClassDef {
	if int(c) >= NumClasses {
		return ClassTable[ClassScout]
	}
	return ClassTable[c]
}

// RapidFireAgainst returns the rapid-fire multiplier of attacker vs target,
// or 0 when the attacker has no bonus against that class.
func RapidFireAgainst(attacker, target ShipClass) float64 {
	return Def(attacker).RapidFire[target]
}
