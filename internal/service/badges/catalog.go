// Package badges defines the badge catalog and the rules that award badges
// when a mini-game round completes.
package badges

// ID identifies a badge.
type ID string

// Badge identifiers.
const (
	WasteWarrior    ID = "waste_warrior"
	WaterSaver      ID = "water_saver"
	GreenThumb      ID = "green_thumb"
	EcoChampion     ID = "eco_champion"
	PlanetProtector ID = "planet_protector"
	CarbonCrusher   ID = "carbon_crusher"
	OceanGuardian   ID = "ocean_guardian"
	ClimateChampion ID = "climate_champion"
)

// Kind separates badges earned in a game from badges earned by collecting others.
type Kind string

// Badge kinds.
const (
	KindGame Kind = "game"
	KindMeta Kind = "meta"
)

// Badge is a catalog entry.
type Badge struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Kind        Kind   `json:"kind"`
}

var catalog = []Badge{
	{ID: WasteWarrior, Name: "Waste Warrior", Description: "Sort waste into the right bins", Icon: "fa-recycle", Color: "green-500", Kind: KindGame},
	{ID: WaterSaver, Name: "Water Saver", Description: "Stop dripping taps and save water", Icon: "fa-tint", Color: "blue-500", Kind: KindGame},
	{ID: GreenThumb, Name: "Green Thumb", Description: "Grow a tree to full size", Icon: "fa-seedling", Color: "emerald-500", Kind: KindGame},
	{ID: EcoChampion, Name: "Eco Champion", Description: "Collect 5 badges", Icon: "fa-leaf", Color: "purple-500", Kind: KindMeta},
	{ID: PlanetProtector, Name: "Planet Protector", Description: "Collect 3 badges", Icon: "fa-globe", Color: "indigo-500", Kind: KindMeta},
	{ID: CarbonCrusher, Name: "Carbon Crusher", Description: "Switch off wasteful appliances", Icon: "fa-industry", Color: "orange-500", Kind: KindGame},
	{ID: OceanGuardian, Name: "Ocean Guardian", Description: "Clean the ocean of trash", Icon: "fa-water", Color: "cyan-500", Kind: KindGame},
	{ID: ClimateChampion, Name: "Climate Champion", Description: "Choose low-carbon activities", Icon: "fa-temperature-low", Color: "green-600", Kind: KindGame},
}

// Catalog returns every badge.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Name returns the display name for id, falling back to the raw id.
func Name(id ID) string {
	if b, ok := Lookup(id); ok {
		return b.Name
	}
	return string(id)
}
