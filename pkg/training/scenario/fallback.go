package scenario

import "vas-training-be/pkg/store"

// Fallback returns a fixed scenario for the difficulty/category pair. Used
// when the content-generation service is unavailable; producible without any
// external call.
func Fallback(difficulty, category string) *store.Scenario {
	base, ok := fallbackCatalog[category]
	if !ok {
		base = fallbackCatalog["general"]
	}

	scn := &store.Scenario{
		Title:          base.Title,
		Description:    base.Description,
		RequiredSteps:  append([]string(nil), base.RequiredSteps...),
		CriticalErrors: append([]string(nil), base.CriticalErrors...),
		TimePressure:   base.TimePressure,
	}

	switch difficulty {
	case "intermediate":
		scn.TimePressure += 2
	case "advanced":
		scn.TimePressure += 4
		scn.RequiredSteps = append(scn.RequiredSteps, "offer a goodwill gesture")
	}
	if scn.TimePressure > 10 {
		scn.TimePressure = 10
	}
	return scn
}

var fallbackCatalog = map[string]store.Scenario{
	"booking": {
		Title:       "Room Preference Mix-Up",
		Description: "A guest booked a quiet room with a king bed but the reservation shows twin beds next to the elevator.",
		RequiredSteps: []string{
			"acknowledge the booking error",
			"check room availability",
			"offer a corrected reservation",
			"confirm the new booking details",
		},
		CriticalErrors: []string{"blame the guest", "refuse to check availability"},
		TimePressure:   4,
	},
	"complaint": {
		Title:       "Noisy Neighbors at 2 AM",
		Description: "A guest calls the desk exhausted and angry after hours of noise from the adjacent room.",
		RequiredSteps: []string{
			"apologize for the disturbance",
			"offer to address the noise",
			"offer a room change",
			"follow up on the resolution",
		},
		CriticalErrors: []string{"dismiss the complaint", "hang up"},
		TimePressure:   6,
	},
	"overbooking": {
		Title:       "No Rooms at Midnight",
		Description: "A prepaid guest arrives to a fully occupied hotel and their suite was released to another party.",
		RequiredSteps: []string{
			"acknowledge the overbooking",
			"apologize sincerely",
			"arrange alternative accommodation",
			"cover the price difference",
			"confirm transportation",
		},
		CriticalErrors: []string{"blame the guest", "deny the prepayment"},
		TimePressure:   8,
	},
	"general": {
		Title:       "Late Checkout Request",
		Description: "A guest with a delayed flight asks for a checkout four hours past the posted time on a busy day.",
		RequiredSteps: []string{
			"acknowledge the request",
			"check the occupancy forecast",
			"offer an option",
		},
		CriticalErrors: []string{"refuse without checking"},
		TimePressure:   3,
	},
}
