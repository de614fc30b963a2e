package badges

import (
	"fmt"
	"strings"

	"github.com/aimd54/planet-heroes/internal/game"
)

// Criteria is a threshold test on a metric.
type Criteria struct {
	Metric   string  // "score" or "badge_count"
	Operator string  // "<", "<=", ">", ">=", "=="
	Value    float64 // threshold
}

// Tier is one threshold of a per-game rule with its congratulation text.
type Tier struct {
	Criteria Criteria
	Message  string
}

// GameRule awards a badge for a score in one game. Tiers are ordered from
// highest to lowest threshold; every tier grants the same badge.
type GameRule struct {
	Game  game.Type
	Badge ID
	Tiers []Tier
}

// MetaRule awards a badge for the number of badges held.
type MetaRule struct {
	Badge    ID
	Criteria Criteria
}

func scoreTier(threshold float64, message string) Tier {
	return Tier{Criteria: Criteria{Metric: "score", Operator: ">=", Value: threshold}, Message: message}
}

var gameRules = []GameRule{
	{Game: game.WasteSorting, Badge: WasteWarrior, Tiers: []Tier{
		scoreTier(80, "🏆 Waste Warrior Badge Earned! You're a recycling expert!"),
		scoreTier(50, "🏆 Waste Warrior Badge Earned! Great job sorting waste!"),
	}},
	{Game: game.WaterSaver, Badge: WaterSaver, Tiers: []Tier{
		scoreTier(40, "💧 Water Saver Badge Earned! You're a water conservation hero!"),
		scoreTier(25, "💧 Water Saver Badge Earned! Keep saving water!"),
	}},
	{Game: game.PlantTree, Badge: GreenThumb, Tiers: []Tier{
		scoreTier(150, "🌱 Green Thumb Badge Earned! You're a tree planting master!"),
		scoreTier(100, "🌱 Green Thumb Badge Earned! Your trees are thriving!"),
	}},
	{Game: game.EnergySaver, Badge: CarbonCrusher, Tiers: []Tier{
		scoreTier(150, "⚡ Carbon Crusher Badge Earned! You're an energy saving expert!"),
		scoreTier(100, "⚡ Carbon Crusher Badge Earned! Great job saving energy!"),
	}},
	{Game: game.OceanCleanup, Badge: OceanGuardian, Tiers: []Tier{
		scoreTier(120, "🌊 Ocean Guardian Badge Earned! You're protecting marine life!"),
		scoreTier(80, "🌊 Ocean Guardian Badge Earned! Keep cleaning our oceans!"),
	}},
	{Game: game.CarbonFootprint, Badge: ClimateChampion, Tiers: []Tier{
		scoreTier(200, "🌍 Climate Champion Badge Earned! You're fighting climate change!"),
		scoreTier(150, "🌍 Climate Champion Badge Earned! Your eco-choices make a difference!"),
	}},
}

// Meta rules are evaluated independently, lowest threshold first.
var metaRules = []MetaRule{
	{Badge: PlanetProtector, Criteria: Criteria{Metric: "badge_count", Operator: ">=", Value: 3}},
	{Badge: EcoChampion, Criteria: Criteria{Metric: "badge_count", Operator: ">=", Value: 5}},
}

// GameRules returns the per-game rule table.
func GameRules() []GameRule {
	out := make([]GameRule, len(gameRules))
	copy(out, gameRules)
	return out
}

// RuleFor returns the rule for a game.
func RuleFor(t game.Type) (GameRule, bool) {
	for _, r := range gameRules {
		if r.Game == t {
			return r, true
		}
	}
	return GameRule{}, false
}

// Notice is the message shown to the player after a round.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Decision is the result of evaluating a completed round.
type Decision struct {
	// GameBadge is the per-game badge newly earned, empty if none.
	GameBadge ID
	// GameNotice is set when GameBadge is.
	GameNotice *Notice
	// MetaBadges are the meta badges newly earned.
	MetaBadges []ID
	// MetaNotice is set when at least one meta badge was earned.
	MetaNotice *Notice
	// Badges is the full badge set after the round.
	Badges []ID
}

// Earned returns every badge newly earned, per-game badge first.
func (d Decision) Earned() []ID {
	var out []ID
	if d.GameBadge != "" {
		out = append(out, d.GameBadge)
	}
	return append(out, d.MetaBadges...)
}

// Notice returns the message to show. A meta badge message takes priority
// over the per-game message.
func (d Decision) Notice() *Notice {
	if d.MetaNotice != nil {
		return d.MetaNotice
	}
	return d.GameNotice
}

// Evaluate decides which badges a round earns. It is pure: held is the
// player's current badge set and is not modified.
func Evaluate(t game.Type, score int, held []ID) Decision {
	has := make(map[ID]bool, len(held))
	set := make([]ID, 0, len(held)+3)
	for _, id := range held {
		if !has[id] {
			has[id] = true
			set = append(set, id)
		}
	}

	var d Decision
	if rule, ok := RuleFor(t); ok && !has[rule.Badge] {
		for _, tier := range rule.Tiers {
			if matches(tier.Criteria, map[string]float64{"score": float64(score)}) {
				d.GameBadge = rule.Badge
				desc := fmt.Sprintf("Congratulations! You've earned the %s badge for your excellent performance in the %s game!",
					Name(rule.Badge), strings.ReplaceAll(string(t), "_", " "))
				d.GameNotice = &Notice{Title: tier.Message, Description: desc}
				has[rule.Badge] = true
				set = append(set, rule.Badge)
				break
			}
		}
	}

	count := len(set)
	values := map[string]float64{"badge_count": float64(count)}
	for _, rule := range metaRules {
		if has[rule.Badge] || !matches(rule.Criteria, values) {
			continue
		}
		d.MetaBadges = append(d.MetaBadges, rule.Badge)
		title := fmt.Sprintf("🏆 %s Badge Unlocked!", Name(rule.Badge))
		desc := fmt.Sprintf("Amazing! You've earned %d badges and unlocked the %s badge for your dedication to environmental protection!",
			count, Name(rule.Badge))
		d.MetaNotice = &Notice{Title: title, Description: desc}
	}
	for _, id := range d.MetaBadges {
		has[id] = true
		set = append(set, id)
	}

	d.Badges = set
	return d
}

// matches reports whether the metric in values satisfies c. A missing metric
// never matches.
func matches(c Criteria, values map[string]float64) bool {
	actual, ok := values[c.Metric]
	if !ok {
		return false
	}
	switch c.Operator {
	case "<":
		return actual < c.Value
	case "<=":
		return actual <= c.Value
	case ">":
		return actual > c.Value
	case ">=":
		return actual >= c.Value
	case "==":
		return actual == c.Value
	default:
		return false
	}
}
