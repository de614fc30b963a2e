package game

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether the point lies inside r. Edges are inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Action is the kind of pointer event.
type Action string

// Pointer actions.
const (
	ActionClick   Action = "click"
	ActionPress   Action = "press"
	ActionMove    Action = "move"
	ActionRelease Action = "release"
)

// Input is a pointer event forwarded from the browser canvas.
type Input struct {
	Action Action  `json:"action" binding:"required,oneof=click press move release"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Target is an interactive object on the canvas.
type Target struct {
	ID          int    `json:"id"`
	Kind        string `json:"kind"`
	Rect        Rect   `json:"rect"`
	Active      bool   `json:"active"`
	EcoFriendly bool   `json:"eco_friendly,omitempty"`
	Points      int    `json:"points,omitempty"`
}

// Snapshot is the renderable state of a round.
type Snapshot struct {
	RoundID     string   `json:"round_id,omitempty"`
	Game        Type     `json:"game"`
	Policy      Policy   `json:"policy"`
	State       State    `json:"state"`
	Score       int      `json:"score"`
	Remaining   int      `json:"remaining,omitempty"`
	Stage       int      `json:"stage,omitempty"`
	Clicks      int      `json:"clicks,omitempty"`
	Interactive bool     `json:"interactive"`
	Targets     []Target `json:"targets"`
	Zones       []Target `json:"zones,omitempty"`
}
