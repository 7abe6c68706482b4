package hermes

const (
	// SubjectModelRetrain is consumed by the server to retrain on demand.
	SubjectModelRetrain = "clearhead.model.retrain"
	SubjectModelTrained = "clearhead.model.trained"

	StreamName   = "CLEARHEAD_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are persisted in StreamName.
var StreamSubjects = []string{"clearhead.run.>", "clearhead.model.>"}

func SubjectRunCompleted(runID string) string { return "clearhead.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "clearhead.run." + runID + ".failed" }
