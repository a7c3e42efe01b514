package core

// Achievement is a named predicate over the four derived collection
// counters: captured count, captured legendary count, total legendary
// count, and completion percent.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	Condition func(captured, legendary, totalLegendary, completion int) bool `json:"-"`
}

// Achievements is the fixed set of collection milestones. Unlock state is
// recomputed from the current counters on every evaluation and is not
// persisted, so an exact-count milestone like Collector reads as locked
// again once the count moves past it. That matches the reference behavior
// and is intentional.
var Achievements = []Achievement{
	{
		ID:          "first-discovery",
		Name:        "First Discovery",
		Description: "Found your first animal!",
		Icon:        "⭐",
		Condition:   func(captured, _, _, _ int) bool { return captured == 1 },
	},
	{
		ID:          "collector",
		Name:        "Collector",
		Description: "Collected 5 animals!",
		Icon:        "⭐",
		Condition:   func(captured, _, _, _ int) bool { return captured == 5 },
	},
	{
		ID:          "hunter",
		Name:        "Hunter",
		Description: "Collected 25 animals!",
		Icon:        "⭐",
		Condition:   func(captured, _, _, _ int) bool { return captured == 25 },
	},
	{
		ID:          "legendary-hunter",
		Name:        "Legendary Hunter",
		Description: "Found a legendary animal!",
		Icon:        "⭐",
		Condition:   func(_, legendary, _, _ int) bool { return legendary == 1 },
	},
	{
		ID:          "cryptozoologist",
		Name:        "Cryptozoologist",
		Description: "Discovered all legendary animals!",
		Icon:        "🕵️",
		Condition: func(_, legendary, totalLegendary, _ int) bool {
			return legendary > 0 && legendary == totalLegendary
		},
	},
	{
		ID:          "explorer",
		Name:        "Explorer",
		Description: "Discovered all species!",
		Icon:        "⭐",
		Condition:   func(_, _, _, completion int) bool { return completion == 100 },
	},
}

// EvaluateAchievements returns the ids of achievements whose predicate holds
// for the given counters.
func EvaluateAchievements(captured, legendary, totalLegendary, completion int) []string {
	var unlocked []string
	for _, a := range Achievements {
		if a.Condition(captured, legendary, totalLegendary, completion) {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}
