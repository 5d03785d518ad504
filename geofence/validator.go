package geofence

import "math"

// =============================================================================
// REQUEST / RESULT
// =============================================================================

type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
)

// Request is one location report. Location is nil when the device sent none.
type Request struct {
	Action   Action
	Location *Point
	WFH      bool // employee is marked work-from-home for the day
}

// Reasons reported on Result.
const (
	ReasonDisabled        = "disabled"
	ReasonNotEnforced     = "not_enforced"
	ReasonWFHBypass       = "wfh_bypass"
	ReasonInsideOffice    = "inside_office"
	ReasonOutsideOffices  = "outside_offices"
	ReasonLocationMissing = "location_missing"
	ReasonInvalidLocation = "invalid_location"
)

// Result describes the outcome. NearestOffice and DistanceMeters are set
// whenever a distance was computed: the matching office when allowed, the
// closest office when denied.
type Result struct {
	Allowed        bool    `json:"allowed"`
	Reason         string  `json:"reason"`
	NearestOffice  string  `json:"nearest_office,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// Denied is a convenience for callers that flag rather than reject.
func (r Result) Denied() bool { return !r.Allowed }

// =============================================================================
// VALIDATE
// =============================================================================

// Validate decides whether req is acceptable under cfg.
func Validate(cfg Config, req Request) Result {
	if !cfg.Enabled {
		return Result{Allowed: true, Reason: ReasonDisabled}
	}
	if !enforced(cfg, req.Action) {
		return Result{Allowed: true, Reason: ReasonNotEnforced}
	}
	if req.WFH && cfg.AllowWFHBypass {
		return Result{Allowed: true, Reason: ReasonWFHBypass}
	}
	if req.Location == nil {
		return Result{Allowed: false, Reason: ReasonLocationMissing}
	}
	if !req.Location.valid() {
		return Result{Allowed: false, Reason: ReasonInvalidLocation}
	}

	nearest := Result{Allowed: false, Reason: ReasonOutsideOffices, DistanceMeters: math.Inf(1)}
	for _, office := range cfg.ActiveOffices() {
		d := Distance(*req.Location, office.Center())
		if d <= office.RadiusMeters {
			return Result{Allowed: true, Reason: ReasonInsideOffice, NearestOffice: office.Name, DistanceMeters: d}
		}
		if d < nearest.DistanceMeters {
			nearest.NearestOffice = office.Name
			nearest.DistanceMeters = d
		}
	}
	if math.IsInf(nearest.DistanceMeters, 1) {
		nearest.DistanceMeters = 0
	}
	return nearest
}

func enforced(cfg Config, action Action) bool {
	switch action {
	case ActionCheckIn:
		return cfg.EnforceCheckIn
	case ActionCheckOut:
		return cfg.EnforceCheckOut
	}
	return true
}
