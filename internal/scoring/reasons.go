package scoring

import (
	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

const MaxReasons = 3

const (
	ReasonFocusTime      = "Good time for focus and concentration"
	ReasonEnergyDip      = "Consider easier tasks during this energy dip"
	ReasonGoodMatch      = "High energy + manageable complexity = good match"
	ReasonPoorMatch      = "Low energy + high complexity may be challenging"
	ReasonRoutine        = "Routine tasks are easier with ADHD"
	ReasonShortTask      = "Short task fits ADHD attention span"
	ReasonLongTask       = "Long task - consider breaking into smaller chunks"
	ReasonInterestDriven = "Interest-driven category - natural motivation"
	ReasonAdministrative = "Administrative task - consider pairing with reward"
	ReasonHighLikelihood = "High success likelihood - great momentum builder"
	ReasonChallenging    = "Challenging task - consider postponing or modifying"
)

// Thresholds for the reasoning checklist. These are independent of the
// friendliness Adjustments.
const (
	highEnergy        = 7
	lowEnergy         = 4
	manageableMax     = 6
	overwhelmingMin   = 7
	shortReasonMax    = 30
	longReasonMin     = 60
	likelyThreshold   = 0.7
	unlikelyThreshold = 0.3
)

// Reasons walks the checklist in order (time of day, energy against
// complexity, routine, length, category, probability) and keeps the
// first MaxReasons that fire. The text never influences ranking.
func Reasons(rec *task.Record, probability float64, hour int, profile behavior.Profile) []string {
	reasons := make([]string, 0, MaxReasons)
	add := func(r string) {
		if len(reasons) < MaxReasons {
			reasons = append(reasons, r)
		}
	}

	switch {
	case profile.IsPeak(hour):
		add(ReasonFocusTime)
	case profile.IsLowEnergy(hour):
		add(ReasonEnergyDip)
	}

	switch {
	case rec.Energy >= highEnergy && rec.Complexity <= manageableMax:
		add(ReasonGoodMatch)
	case rec.Energy < lowEnergy && rec.Complexity > overwhelmingMin:
		add(ReasonPoorMatch)
	}

	if rec.Routine {
		add(ReasonRoutine)
	}

	switch {
	case rec.LengthMinutes <= shortReasonMax:
		add(ReasonShortTask)
	case rec.LengthMinutes > longReasonMin:
		add(ReasonLongTask)
	}

	switch {
	case profile.IsPreferred(rec.Category):
		add(ReasonInterestDriven)
	case profile.IsAvoided(rec.Category):
		add(ReasonAdministrative)
	}

	switch {
	case probability > likelyThreshold:
		add(ReasonHighLikelihood)
	case probability < unlikelyThreshold:
		add(ReasonChallenging)
	}

	return reasons
}
