package geofence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
)

func officeConfig() geofence.Config {
	return geofence.Config{
		Enabled:         true,
		EnforceCheckIn:  true,
		EnforceCheckOut: false,
		AllowWFHBypass:  true,
		Offices: []geofence.OfficeLocation{
			{Name: "Bengaluru HQ", Latitude: 12.9716, Longitude: 77.5946, RadiusMeters: 200, Active: true},
			{Name: "Pune", Latitude: 18.5204, Longitude: 73.8567, RadiusMeters: 300, Active: true},
			{Name: "Closed Annex", Latitude: 12.9800, Longitude: 77.5946, RadiusMeters: 5000, Active: false},
		},
	}
}

func at(lat, lon float64) *geofence.Point {
	return &geofence.Point{Latitude: lat, Longitude: lon}
}

func TestDistance_OneDegreeOfLongitudeAtEquator(t *testing.T) {
	d := geofence.Distance(geofence.Point{}, geofence.Point{Longitude: 1})
	assert.InDelta(t, 111195, d, 1)
	assert.Zero(t, geofence.Distance(geofence.Point{Latitude: 12, Longitude: 77}, geofence.Point{Latitude: 12, Longitude: 77}))
}

func TestValidate_InsidePerimeter(t *testing.T) {
	// GIVEN: A check-in roughly 100m north of HQ (radius 200m)
	// WHEN: Validating
	// THEN: Allowed, matched to HQ

	res := geofence.Validate(officeConfig(), geofence.Request{
		Action:   geofence.ActionCheckIn,
		Location: at(12.9725, 77.5946),
	})

	assert.True(t, res.Allowed)
	assert.Equal(t, geofence.ReasonInsideOffice, res.Reason)
	assert.Equal(t, "Bengaluru HQ", res.NearestOffice)
	assert.InDelta(t, 100, res.DistanceMeters, 1)
}

func TestValidate_OutsideReportsNearestOffice(t *testing.T) {
	// GIVEN: A check-in about 1km north of HQ, inside only the inactive annex
	// WHEN: Validating
	// THEN: Denied, nearest active office is HQ at ~1km

	res := geofence.Validate(officeConfig(), geofence.Request{
		Action:   geofence.ActionCheckIn,
		Location: at(12.9806, 77.5946),
	})

	assert.False(t, res.Allowed)
	assert.True(t, res.Denied())
	assert.Equal(t, geofence.ReasonOutsideOffices, res.Reason)
	assert.Equal(t, "Bengaluru HQ", res.NearestOffice)
	assert.InDelta(t, 1000, res.DistanceMeters, 2)
}

func TestValidate_BypassRules(t *testing.T) {
	far := at(28.6139, 77.2090) // New Delhi

	tests := []struct {
		name   string
		mutate func(*geofence.Config)
		req    geofence.Request
		reason string
	}{
		{
			name:   "disabled",
			mutate: func(c *geofence.Config) { c.Enabled = false },
			req:    geofence.Request{Action: geofence.ActionCheckIn, Location: far},
			reason: geofence.ReasonDisabled,
		},
		{
			name:   "check-out not enforced",
			req:    geofence.Request{Action: geofence.ActionCheckOut, Location: far},
			reason: geofence.ReasonNotEnforced,
		},
		{
			name:   "wfh bypass",
			req:    geofence.Request{Action: geofence.ActionCheckIn, Location: far, WFH: true},
			reason: geofence.ReasonWFHBypass,
		},
		{
			name:   "wfh bypass without location",
			req:    geofence.Request{Action: geofence.ActionCheckIn, WFH: true},
			reason: geofence.ReasonWFHBypass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := officeConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			res := geofence.Validate(cfg, tt.req)
			assert.True(t, res.Allowed)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestValidate_WFHIgnoredWhenBypassNotAllowed(t *testing.T) {
	cfg := officeConfig()
	cfg.AllowWFHBypass = false

	// Mysuru, about 130 km from Bengaluru
	res := geofence.Validate(cfg, geofence.Request{
		Action:   geofence.ActionCheckIn,
		Location: at(12.2958, 76.6394),
		WFH:      true,
	})

	assert.False(t, res.Allowed)
	assert.Equal(t, "Bengaluru HQ", res.NearestOffice)
}

func TestValidate_MissingOrInvalidLocation(t *testing.T) {
	res := geofence.Validate(officeConfig(), geofence.Request{Action: geofence.ActionCheckIn})
	assert.False(t, res.Allowed)
	assert.Equal(t, geofence.ReasonLocationMissing, res.Reason)

	res = geofence.Validate(officeConfig(), geofence.Request{Action: geofence.ActionCheckIn, Location: at(91, 0)})
	assert.False(t, res.Allowed)
	assert.Equal(t, geofence.ReasonInvalidLocation, res.Reason)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, officeConfig().Validate())

	noActive := officeConfig()
	for i := range noActive.Offices {
		noActive.Offices[i].Active = false
	}
	assert.ErrorIs(t, noActive.Validate(), core.ErrConfiguration)

	badRadius := officeConfig()
	badRadius.Offices[0].RadiusMeters = 0
	assert.ErrorIs(t, badRadius.Validate(), core.ErrConfiguration)

	badCoord := officeConfig()
	badCoord.Offices[1].Longitude = 200
	assert.ErrorIs(t, badCoord.Validate(), core.ErrConfiguration)

	disabled := geofence.Config{Enabled: false}
	assert.NoError(t, disabled.Validate())
}
