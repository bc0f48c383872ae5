package entity

import "github.com/dcastano/reciboscan/constants"

// ZoneDefinition is one named region of the receipt image, produced by
// heuristic detection or loaded from a persisted template.
type ZoneDefinition struct {
	Type       constants.ZoneType `json:"type"`
	Box        NormalizedBox      `json:"box"`
	IsRequired bool               `json:"is_required"`
}

// ZoneSet indexes zones by type. At most one zone per type.
type ZoneSet map[constants.ZoneType]ZoneDefinition

// Get returns the zone of the given type, if present.
func (z ZoneSet) Get(t constants.ZoneType) (ZoneDefinition, bool) {
	def, ok := z[t]
	return def, ok
}
