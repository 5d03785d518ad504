/*
Package geofence checks reported locations against office perimeters.

PURPOSE:
  A check-in or check-out may be required to happen on-site. An office is
  a circle (center + radius in meters). A reported point is on-site when
  it lies inside at least one active office circle.

KEY CONCEPTS IN THIS FILE (config.go):
  - Point: A latitude/longitude pair in decimal degrees
  - OfficeLocation: A named circular perimeter
  - Config: The GeofenceConfig snapshot with the enforcement flags

RESULT, NOT ERROR:
  A denial is an ordinary Result with Allowed=false. Callers decide
  whether to reject the event or record it with a flag.

SEE ALSO:
  - validator.go: Validate
  - attendance/resolver.go: Surfaces denial as GeofenceViolation
*/
package geofence

import (
	"fmt"
	"strings"

	"github.com/warp/payroll-engine/core"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Point) valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

type OfficeLocation struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	Active       bool    `json:"active"`
}

func (o OfficeLocation) Center() Point {
	return Point{Latitude: o.Latitude, Longitude: o.Longitude}
}

type Config struct {
	Offices         []OfficeLocation `json:"offices"`
	Enabled         bool             `json:"enabled"`
	EnforceCheckIn  bool             `json:"enforce_check_in"`
	EnforceCheckOut bool             `json:"enforce_check_out"`
	AllowWFHBypass  bool             `json:"allow_wfh_bypass"`
}

// Validate rejects offices with impossible coordinates or radii, and an
// enabled fence with nothing to check against.
func (c Config) Validate() error {
	active := 0
	for i, o := range c.Offices {
		field := fmt.Sprintf("geofence.offices[%d]", i)
		if strings.TrimSpace(o.Name) == "" {
			return &core.ConfigurationError{Field: field + ".name", Reason: "required"}
		}
		if !o.Center().valid() {
			return &core.ConfigurationError{Field: field, Reason: "coordinates out of range"}
		}
		if o.RadiusMeters <= 0 {
			return &core.ConfigurationError{Field: field + ".radius_meters", Reason: "must be positive"}
		}
		if o.Active {
			active++
		}
	}
	if c.Enabled && (c.EnforceCheckIn || c.EnforceCheckOut) && active == 0 {
		return &core.ConfigurationError{Field: "geofence.offices", Reason: "enforcement enabled with no active office"}
	}
	return nil
}

// ActiveOffices returns the offices that participate in validation.
func (c Config) ActiveOffices() []OfficeLocation {
	var out []OfficeLocation
	for _, o := range c.Offices {
		if o.Active {
			out = append(out, o)
		}
	}
	return out
}
