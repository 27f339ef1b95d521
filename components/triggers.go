package components

// NeedTracker remembers the previous tick's need values plus latch
// flags so threshold crossings fire exactly once per excursion.
type NeedTracker struct {
	PrevHunger float32
	PrevThirst float32
	PrevEnergy float32

	HungerCritical bool
	HungerModerate bool
	ThirstCritical bool
	ThirstModerate bool
	EnergyLow      bool
	ThreatNearby   bool
}
