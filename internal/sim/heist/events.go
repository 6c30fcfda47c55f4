package heist

import "rivet.ai/internal/sim/kernel/event"

const (
	EventCrewMoved            event.Type = "CREW_MOVED"
	EventGuardMoved           event.Type = "GUARD_MOVED"
	EventObjectiveProgress    event.Type = "OBJECTIVE_PROGRESS"
	EventCrewSpotted          event.Type = "CREW_SPOTTED"
	EventRuleFired            event.Type = "RULE_FIRED"
	EventHeatThresholdCrossed event.Type = "HEAT_THRESHOLD_CROSSED"
	EventHeistWon             event.Type = "HEIST_WON"
	EventHeistLost            event.Type = "HEIST_LOST"
)

const (
	ResultWon  = "WON"
	ResultLost = "LOST"

	LossTimeout = "TIMEOUT"
	LossCaught  = "CAUGHT"
)

type CrewMoved struct {
	CrewID string `json:"crew_id"`
	From   Vec    `json:"from"`
	To     Vec    `json:"to"`
}

type GuardMoved struct {
	GuardID string `json:"guard_id"`
	Index   int    `json:"index"`
	To      Vec    `json:"to"`
	Delay   int    `json:"delay"`
}

type ObjectiveProgress struct {
	ObjectiveID string `json:"objective_id"`
	CrewID      string `json:"crew_id"`
	Amount      int    `json:"amount"`
}

type CrewSpotted struct {
	GuardID  string `json:"guard_id"`
	CrewID   string `json:"crew_id"`
	Distance int    `json:"distance"`
}

type RuleFired struct {
	RuleID string `json:"rule_id"`
	Noise  int    `json:"noise"`
}

type HeatThresholdCrossed struct {
	PreviousLevel int `json:"previous_level"`
	NewLevel      int `json:"new_level"`
	Heat          int `json:"heat"`
	Threshold     int `json:"threshold"`
}

type HeistWon struct {
	FinalHeat  int    `json:"final_heat"`
	TotalTicks uint64 `json:"total_ticks"`
}

type HeistLost struct {
	Reason     string `json:"reason"`
	FinalHeat  int    `json:"final_heat"`
	TotalTicks uint64 `json:"total_ticks"`
}

// Catalog lists every event the ruleset emits with its payload type.
func Catalog() (*event.Catalog, error) {
	return event.NewCatalog(
		event.Definition{Type: EventCrewMoved, Payload: CrewMoved{}},
		event.Definition{Type: EventGuardMoved, Payload: GuardMoved{}},
		event.Definition{Type: EventObjectiveProgress, Payload: ObjectiveProgress{}},
		event.Definition{Type: EventCrewSpotted, Payload: CrewSpotted{}},
		event.Definition{Type: EventRuleFired, Payload: RuleFired{}},
		event.Definition{Type: EventHeatThresholdCrossed, Payload: HeatThresholdCrossed{}},
		event.Definition{Type: EventHeistWon, Payload: HeistWon{}},
		event.Definition{Type: EventHeistLost, Payload: HeistLost{}},
	)
}
