package tile

import "fmt"

// Status classifies what happened to a single tile.
type Status int

const (
	// StatusFetched means the tile was downloaded and stored.
	StatusFetched Status = iota + 1
	// StatusPresent means the tile was already in the store; nothing was fetched.
	StatusPresent
	// StatusFailed means the fetch or the write failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFetched:
		return "fetched"
	case StatusPresent:
		return "present"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FailureKind is the sub-category of a failed tile.
type FailureKind string

const (
	KindTimeout   FailureKind = "timeout"
	KindTransport FailureKind = "transport"
	KindStatus    FailureKind = "status"
	KindRead      FailureKind = "read"
	KindEmpty     FailureKind = "empty"
	KindStorage   FailureKind = "storage"
)

// Outcome is the result of running one tile task.
type Outcome struct {
	Status Status

	// Bytes is the stored size for StatusFetched.
	Bytes int64

	// Kind and Err are set for StatusFailed.
	Kind FailureKind
	Err  error
}

// Fetched returns a successful download outcome of n bytes.
func Fetched(n int64) Outcome {
	return Outcome{Status: StatusFetched, Bytes: n}
}

// AlreadyPresent returns the outcome for a tile found in the store.
func AlreadyPresent() Outcome {
	return Outcome{Status: StatusPresent}
}

// Failed returns a failure outcome.
func Failed(kind FailureKind, err error) Outcome {
	return Outcome{Status: StatusFailed, Kind: kind, Err: err}
}

// Reason is the human-readable failure cause, empty unless failed.
func (o Outcome) Reason() string {
	if o.Status != StatusFailed || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Result pairs an Outcome with the address it was produced for.
type Result struct {
	Tile    Address
	Outcome Outcome
}
