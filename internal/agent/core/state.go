package core

// State is a step of the session loop.
type State string

const (
	StatePlanning    State = "PLANNING"
	StateRetrieving  State = "RETRIEVING"
	StateIntegrating State = "INTEGRATING"
	StateAssessing   State = "ASSESSING"
	StateAccepted    State = "ACCEPTED"
	StateRetrying    State = "RETRYING"
	StateDone        State = "DONE"
)

// Event is delivered to an Observer after every transition.
type Event struct {
	SessionID  string
	Iteration  int
	State      State
	Plan       string
	Source     string
	Response   string
	Assessment *QualityAssessment
}

// Observer receives session events synchronously on the session goroutine.
type Observer func(Event)
