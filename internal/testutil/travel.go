package testutil

import "strings"

// Canned stage outputs returned by NewTravelGenerator.
const (
	TravelPlan = `## Trip Overview
Five days in Lisbon on a $1500 budget.

## Day-by-Day Itinerary
Day 1: Alfama and the castle
Day 2: Belém
Day 3: Sintra day trip
Day 4: LX Factory and the riverside
Day 5: Cascais

## Budget Estimates
Lodging $500, food $400, transport $200, activities $250.`

	TravelTasks = `- Find flights to Lisbon for the travel dates
- Find lodging in Alfama or Baixa
- Find restaurants serving traditional Portuguese food
- Find Sintra tour options and tickets`

	TravelResearch = `## Flights
TAP direct, $420 round trip.

## Lodging
Alfama guesthouse, $95 per night.`

	TravelItinerary = `## Day 1
09:00 Castelo de São Jorge

## Budget Breakdown
Total $1460.

## Next Steps for Enhancement
- Book the Sintra train in advance`

	TravelValidation = `## Validation Status
Good.

## Issues Found
Day 3 is tight.

## Next Steps for Improvement
- Confirm Pena Palace opening hours
- Reserve a fado dinner`
)

// TravelResponder answers each stage prompt with its canned output,
// telling stages apart by the instruction that opens their task prompt.
func TravelResponder(prompt string) (any, error) {
	switch {
	case strings.Contains(prompt, "Review this travel itinerary"):
		return TravelValidation, nil
	case strings.Contains(prompt, "Write the final travel itinerary"):
		return TravelItinerary, nil
	case strings.Contains(prompt, "Research the tasks below"):
		return TravelResearch, nil
	case strings.Contains(prompt, "List the concrete research tasks"):
		return TravelTasks, nil
	case strings.Contains(prompt, "Draft a detailed travel plan"):
		return TravelPlan, nil
	}
	return nil, ErrScriptExhausted
}

// NewTravelGenerator returns a generator that plays a full planning run.
// Queued steps, if any, are consumed before the canned answers.
func NewTravelGenerator(steps ...Step) *ScriptedGenerator {
	return NewScriptedGenerator(steps...).WithFallback(TravelResponder)
}
