package domain

import "time"

const (
	// MinTrees and MaxTrees bound the tree count the 311 form accepts.
	MinTrees = 1
	MaxTrees = 10

	// MaxLocationLength is the longest placement description the form accepts.
	MaxLocationLength = 50

	DefaultLocation     = "Parkway"
	LongParkwayLocation = "Parkway along long side of building"

	StatusCompleted = "completed"
)

// PlantRequest is an incoming request to plant trees at an address.
// NumTrees and Location are optional; zero values mean "not provided".
type PlantRequest struct {
	Address  string   `json:"address"`
	NumTrees int      `json:"numTrees,omitempty"`
	Location string   `json:"location,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// TreeCount returns the requested tree count, defaulting to one.
func (r PlantRequest) TreeCount() int {
	if r.NumTrees == 0 {
		return MinTrees
	}
	return r.NumTrees
}

// LocationText returns the placement text sent to 311. An explicit location
// wins; otherwise requests for more than two trees ask for the long side of
// the building.
func (r PlantRequest) LocationText() string {
	if r.Location != "" {
		return r.Location
	}
	if r.TreeCount() > 2 {
		return LongParkwayLocation
	}
	return DefaultLocation
}

// TreeRequest is a persisted 311 tree-planting service request.
type TreeRequest struct {
	ID               int64     `json:"id"`
	SRNumber         string    `json:"srNumber"`
	StreetAddress    string    `json:"streetAddress"`
	NumTrees         int       `json:"numTrees"`
	Location         string    `json:"location"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Lat              *float64  `json:"lat,omitempty"`
	Lng              *float64  `json:"lng,omitempty"`
	Status           string    `json:"status"`
	Zipcode          string    `json:"zipcode,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	ConfirmedPlanted bool      `json:"confirmedPlanted"`
	GeocodeAttempted bool      `json:"geocodeAttempted"`
	RequestedAt      time.Time `json:"requestedAt"`
}

// NewTreeRequest builds the row to persist after 311 issued srNumber for req.
// The address must already be canonical.
func NewTreeRequest(req PlantRequest, srNumber string) TreeRequest {
	return TreeRequest{
		SRNumber:      srNumber,
		StreetAddress: req.Address,
		NumTrees:      req.TreeCount(),
		Location:      req.LocationText(),
		Lat:           req.Lat,
		Lng:           req.Lng,
		Status:        StatusCompleted,
		RequestedAt:   clock.Now().UTC(),
	}
}

// Submission is what the automation sidecar types into the 311 form.
type Submission struct {
	Address      string `json:"address"`
	NumTrees     int    `json:"numTrees"`
	LocationText string `json:"location"`
}

// Receipt is returned by 311 after a completed submission.
type Receipt struct {
	SRNumber string
}

// OutcomeStatus tags a SubmissionOutcome.
type OutcomeStatus string

const (
	OutcomeSuccess           OutcomeStatus = "success"
	OutcomeAlreadyExists     OutcomeStatus = "already_exists"
	OutcomeValidationFailure OutcomeStatus = "validation_failure"
	OutcomeExternalFailure   OutcomeStatus = "external_failure"
)

// SubmissionOutcome is the uniform result of a plant request.
type SubmissionOutcome struct {
	Status   OutcomeStatus
	SRNumber string
	Message  string
	// Kind is set for validation failures.
	Kind ValidationKind
	// Request echoes the normalized request that was (or would have been) submitted.
	Request PlantRequest
	// ExistingID is the conflicting row for duplicates, when known.
	ExistingID int64
	// Err is the underlying cause for external failures.
	Err error
}

// Succeeded reports whether 311 accepted the request.
func (o SubmissionOutcome) Succeeded() bool { return o.Status == OutcomeSuccess }

// AlreadyExists reports whether the address was already on record.
func (o SubmissionOutcome) AlreadyExists() bool { return o.Status == OutcomeAlreadyExists }
