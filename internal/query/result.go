// Package query implements the search result lifecycle: every submission
// moves through Loading into exactly one terminal Success or Error state,
// and only the most recently submitted query's outcome is ever published.
package query

// Kind tags the lifecycle phase of a Result.
type Kind int

const (
	// Initial is the state before any submission has occurred.
	Initial Kind = iota
	// Loading means the latest submission's fetch is in flight.
	Loading
	// Success carries the payload of the latest completed submission.
	Success
	// Error carries the failure message of the latest completed submission.
	Error
)

// String returns the lowercase tag name, used in logs and API payloads.
func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "initial"
	}
}

// Result is the tagged union observed by subscribers. Payload and Attribution
// are meaningful only when Kind is Success; Message only when Kind is Error.
type Result[T any] struct {
	Kind        Kind
	Payload     T
	Attribution string
	Message     string
}
