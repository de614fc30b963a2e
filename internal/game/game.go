// Package game implements the Planet Heroes mini-games: their round state
// machines, pointer hit-testing, countdown policies and the cancellable loop
// that drives a round while it is playing.
package game

import (
	"errors"
	"fmt"
)

// Type identifies one of the six mini-games.
type Type string

// Mini-game identifiers.
const (
	WasteSorting    Type = "waste_sorting"
	WaterSaver      Type = "water_saver"
	PlantTree       Type = "plant_tree"
	EnergySaver     Type = "energy_saver"
	OceanCleanup    Type = "ocean_cleanup"
	CarbonFootprint Type = "carbon_footprint"
)

// Policy is the termination policy of a mini-game.
type Policy string

// Termination policies.
const (
	PolicyTimer Policy = "timer" // ends when the countdown reaches zero
	PolicyStage Policy = "stage" // ends when the terminal stage is reached
)

// State is the lifecycle state of a round.
type State string

// Round states.
const (
	StateWaiting   State = "waiting"
	StatePlaying   State = "playing"
	StateCompleted State = "completed"
)

// UnattendedCountdown is the countdown in seconds of a non-interactive round
// of a stage-bound game.
const UnattendedCountdown = 30

// Canvas dimensions shared with the browser renderer.
const (
	CanvasWidth  = 600
	CanvasHeight = 450
)

var (
	// ErrUnknownGame is returned for an unrecognised game identifier.
	ErrUnknownGame = errors.New("unknown game")
	// ErrRoundNotFound is returned when a round id is not hosted.
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundFinished is returned for input sent to a round that is no longer playing.
	ErrRoundFinished = errors.New("round is not playing")
	// ErrNotRoundOwner is returned when a user addresses another user's round.
	ErrNotRoundOwner = errors.New("round belongs to another player")
)

// Info describes a mini-game for the games catalog.
type Info struct {
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Policy      Policy `json:"policy"`
	Countdown   int    `json:"countdown,omitempty"` // seconds, timer-bound games only
}

var catalog = []Info{
	{Type: WasteSorting, Title: "Waste Sorting", Description: "Drag each item into the bin of the same type.", Policy: PolicyTimer, Countdown: 30},
	{Type: WaterSaver, Title: "Water Saver", Description: "Turn off every dripping tap before time runs out.", Policy: PolicyTimer, Countdown: 10},
	{Type: PlantTree, Title: "Plant a Tree", Description: "Water your tree and watch it grow through 3 stages.", Policy: PolicyStage},
	{Type: EnergySaver, Title: "Energy Saver", Description: "Switch off the appliances that are wasting power.", Policy: PolicyTimer, Countdown: 30},
	{Type: OceanCleanup, Title: "Ocean Cleanup", Description: "Collect the trash floating in the ocean.", Policy: PolicyTimer, Countdown: 30},
	{Type: CarbonFootprint, Title: "Carbon Footprint", Description: "Click on green activities to gain points, avoid red ones.", Policy: PolicyTimer, Countdown: 30},
}

// Catalog returns the six mini-games in display order.
func Catalog() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// AllTypes returns every game identifier.
func AllTypes() []Type {
	types := make([]Type, 0, len(catalog))
	for _, info := range catalog {
		types = append(types, info.Type)
	}
	return types
}

// Lookup returns the catalog entry for a game.
func Lookup(t Type) (Info, bool) {
	for _, info := range catalog {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}

// ParseType validates a game identifier.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := Lookup(t); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
	}
	return t, nil
}

// Valid reports whether t is one of the six games.
func (t Type) Valid() bool {
	_, ok := Lookup(t)
	return ok
}

// Label returns a human readable name, e.g. "waste sorting".
func (t Type) Label() string {
	if info, ok := Lookup(t); ok {
		return info.Title
	}
	return string(t)
}
