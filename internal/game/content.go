package game

// content is the game-specific half of a round: layout, hit-testing and the
// scoring events a pointer input produces.
type content interface {
	reset()
	// handle applies one input and returns the score delta and whether the
	// terminal stage was reached.
	handle(in Input) (delta int, finished bool)
	fill(s *Snapshot)
}

func newContent(t Type) content {
	switch t {
	case WasteSorting:
		return &wasteSorting{}
	case WaterSaver:
		return &waterSaver{}
	case PlantTree:
		return &plantTree{}
	case EnergySaver:
		return &energySaver{}
	case OceanCleanup:
		return &oceanCleanup{}
	case CarbonFootprint:
		return &carbonFootprint{}
	default:
		return nil
	}
}

func copyTargets(in []Target) []Target {
	out := make([]Target, len(in))
	copy(out, in)
	return out
}

// hit returns the index of the first active target containing the point, or -1.
func hit(targets []Target, x, y float64) int {
	for i := range targets {
		if targets[i].Active && targets[i].Rect.Contains(x, y) {
			return i
		}
	}
	return -1
}

// Waste sorting: drag an item onto the bin of the same kind.
const (
	wasteItemSize  = 40
	wasteBinWidth  = 80
	wasteBinHeight = 60
	wastePoints    = 10
)

type wasteSorting struct {
	items    []Target
	bins     []Target
	dragging int
	origin   Rect
}

func (g *wasteSorting) reset() {
	g.items = []Target{
		{ID: 1, Kind: "plastic", Rect: Rect{X: 100, Y: 100, W: wasteItemSize, H: wasteItemSize}, Active: true},
		{ID: 2, Kind: "paper", Rect: Rect{X: 200, Y: 100, W: wasteItemSize, H: wasteItemSize}, Active: true},
		{ID: 3, Kind: "organic", Rect: Rect{X: 300, Y: 100, W: wasteItemSize, H: wasteItemSize}, Active: true},
	}
	g.bins = []Target{
		{ID: 1, Kind: "plastic", Rect: Rect{X: 50, Y: 300, W: wasteBinWidth, H: wasteBinHeight}, Active: true},
		{ID: 2, Kind: "paper", Rect: Rect{X: 200, Y: 300, W: wasteBinWidth, H: wasteBinHeight}, Active: true},
		{ID: 3, Kind: "organic", Rect: Rect{X: 350, Y: 300, W: wasteBinWidth, H: wasteBinHeight}, Active: true},
	}
	g.dragging = -1
}

func (g *wasteSorting) handle(in Input) (int, bool) {
	switch in.Action {
	case ActionPress:
		g.dragging = hit(g.items, in.X, in.Y)
		if g.dragging >= 0 {
			g.origin = g.items[g.dragging].Rect
		}
	case ActionMove:
		if g.dragging < 0 {
			return 0, false
		}
		g.items[g.dragging].Rect.X = in.X - wasteItemSize/2
		g.items[g.dragging].Rect.Y = in.Y - wasteItemSize/2
	case ActionRelease:
		if g.dragging < 0 {
			return 0, false
		}
		item := &g.items[g.dragging]
		g.dragging = -1
		bin := hit(g.bins, in.X, in.Y)
		if bin >= 0 && g.bins[bin].Kind == item.Kind {
			item.Active = false
			return wastePoints, false
		}
		item.Rect = g.origin
	}
	return 0, false
}

func (g *wasteSorting) fill(s *Snapshot) {
	s.Targets = copyTargets(g.items)
	s.Zones = copyTargets(g.bins)
}

// Water saver: turn off dripping taps. The hit area includes the handle.
const (
	tapHitWidth  = 85
	tapHitHeight = 40
	tapPoints    = 5
)

type waterSaver struct {
	taps []Target
}

func (g *waterSaver) reset() {
	g.taps = []Target{
		{ID: 1, Kind: "tap", Rect: Rect{X: 100, Y: 100, W: tapHitWidth, H: tapHitHeight}, Active: true},
		{ID: 2, Kind: "tap", Rect: Rect{X: 300, Y: 100, W: tapHitWidth, H: tapHitHeight}, Active: true},
		{ID: 3, Kind: "tap", Rect: Rect{X: 500, Y: 100, W: tapHitWidth, H: tapHitHeight}, Active: true},
	}
}

func (g *waterSaver) handle(in Input) (int, bool) {
	if in.Action != ActionClick {
		return 0, false
	}
	if i := hit(g.taps, in.X, in.Y); i >= 0 {
		g.taps[i].Active = false
		return tapPoints, false
	}
	return 0, false
}

func (g *waterSaver) fill(s *Snapshot) {
	s.Targets = copyTargets(g.taps)
}

// Energy saver: switch off appliances that are on.
const (
	applianceWidth  = 80
	applianceHeight = 60
	appliancePoints = 10
)

type energySaver struct {
	appliances []Target
}

func (g *energySaver) reset() {
	layout := []struct {
		kind string
		x, y float64
	}{
		{"light", 100, 100},
		{"tv", 300, 100},
		{"ac", 500, 100},
		{"computer", 200, 250},
		{"fridge", 400, 250},
	}
	g.appliances = make([]Target, 0, len(layout))
	for i, a := range layout {
		g.appliances = append(g.appliances, Target{
			ID:     i + 1,
			Kind:   a.kind,
			Rect:   Rect{X: a.x, Y: a.y, W: applianceWidth, H: applianceHeight},
			Active: true,
		})
	}
}

func (g *energySaver) handle(in Input) (int, bool) {
	if in.Action != ActionClick {
		return 0, false
	}
	if i := hit(g.appliances, in.X, in.Y); i >= 0 {
		g.appliances[i].Active = false
		return appliancePoints, false
	}
	return 0, false
}

func (g *energySaver) fill(s *Snapshot) {
	s.Targets = copyTargets(g.appliances)
}

// Ocean cleanup: collect floating trash. Each kind has its own size.
const trashPoints = 15

var trashSizes = map[string]float64{
	"plastic": 25,
	"bottle":  20,
	"bag":     30,
	"can":     15,
	"straw":   10,
	"net":     35,
}

type oceanCleanup struct {
	trash []Target
}

func (g *oceanCleanup) reset() {
	layout := []struct {
		kind string
		x, y float64
	}{
		{"plastic", 100, 150},
		{"bottle", 250, 200},
		{"bag", 400, 100},
		{"can", 550, 250},
		{"straw", 150, 300},
		{"net", 350, 350},
	}
	g.trash = make([]Target, 0, len(layout))
	for i, item := range layout {
		size := trashSizes[item.kind]
		g.trash = append(g.trash, Target{
			ID:     i + 1,
			Kind:   item.kind,
			Rect:   Rect{X: item.x, Y: item.y, W: size, H: size},
			Active: true,
		})
	}
}

func (g *oceanCleanup) handle(in Input) (int, bool) {
	if in.Action != ActionClick {
		return 0, false
	}
	if i := hit(g.trash, in.X, in.Y); i >= 0 {
		g.trash[i].Active = false
		return trashPoints, false
	}
	return 0, false
}

func (g *oceanCleanup) fill(s *Snapshot) {
	s.Targets = copyTargets(g.trash)
}

// Carbon footprint: eco-friendly activities gain points, the others cost
// points. Activities stay on the board for the whole round.
const (
	activityWidth   = 80
	activityHeight  = 60
	ecoPoints       = 20
	pollutingPoints = -10
)

type carbonFootprint struct {
	activities []Target
}

func (g *carbonFootprint) reset() {
	layout := []struct {
		kind string
		x, y float64
		eco  bool
	}{
		{"car", 100, 100, false},
		{"bike", 300, 100, true},
		{"plane", 500, 100, false},
		{"bus", 200, 250, true},
		{"walk", 400, 250, true},
		{"ac", 150, 400 - activityHeight/2, false},
		{"fan", 350, 400 - activityHeight/2, true},
	}
	g.activities = make([]Target, 0, len(layout))
	for i, a := range layout {
		points := pollutingPoints
		if a.eco {
			points = ecoPoints
		}
		g.activities = append(g.activities, Target{
			ID:          i + 1,
			Kind:        a.kind,
			Rect:        Rect{X: a.x, Y: a.y, W: activityWidth, H: activityHeight},
			Active:      true,
			EcoFriendly: a.eco,
			Points:      points,
		})
	}
}

func (g *carbonFootprint) handle(in Input) (int, bool) {
	if in.Action != ActionClick {
		return 0, false
	}
	if i := hit(g.activities, in.X, in.Y); i >= 0 {
		return g.activities[i].Points, false
	}
	return 0, false
}

func (g *carbonFootprint) fill(s *Snapshot) {
	s.Targets = copyTargets(g.activities)
}

// Plant tree: stage-bound. Watering the tree advances it through three
// stages at fixed click thresholds.
var plantStages = []struct {
	clicks int
	reward int
}{
	{clicks: 5, reward: 25},
	{clicks: 10, reward: 50},
	{clicks: 15, reward: 100},
}

// wateringCan sits in the bottom-right corner of the canvas.
var wateringCan = Rect{X: CanvasWidth - 100, Y: CanvasHeight - 80, W: 80, H: 60}

type plantTree struct {
	stage  int
	clicks int
}

func (g *plantTree) reset() {
	g.stage = 0
	g.clicks = 0
}

func (g *plantTree) handle(in Input) (int, bool) {
	if in.Action != ActionClick || !wateringCan.Contains(in.X, in.Y) {
		return 0, false
	}
	if g.stage >= len(plantStages) {
		return 0, true
	}
	g.clicks++
	next := plantStages[g.stage]
	if g.clicks < next.clicks {
		return 0, false
	}
	g.stage++
	return next.reward, g.stage == len(plantStages)
}

func (g *plantTree) fill(s *Snapshot) {
	s.Stage = g.stage
	s.Clicks = g.clicks
	s.Zones = []Target{{ID: 1, Kind: "watering_can", Rect: wateringCan, Active: g.stage < len(plantStages)}}
	s.Targets = []Target{}
}
