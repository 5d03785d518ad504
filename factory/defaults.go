package factory

// DefaultRulesYAML is a complete rules file for an Indian organization with
// half-day Saturdays and the 2nd and 4th Saturdays off. The server falls
// back to it only when no rules path is configured, and logs that it did.
const DefaultRulesYAML = `
company:
  name: Warp Technologies
  address: Bengaluru, India

calendar:
  timezone: Asia/Kolkata
  work_start_time: "09:30"
  work_end_time: "18:30"
  late_threshold: "09:55"
  half_day_end_time: "13:30"
  minimum_work_hours: 4
  full_day_hours: 8
  working_days: [1, 2, 3, 4, 5, 6]
  non_working_days: [0]
  saturday_work_type: half
  saturday_holidays: [2, 4]

departments:
  support:
    working_days: [1, 2, 3, 4, 5]
    non_working_days: [0, 6]
    saturday_holidays: []

geofence:
  enabled: true
  enforce_check_in: true
  enforce_check_out: false
  allow_wfh_bypass: true
  offices:
    - name: Bengaluru HQ
      latitude: 12.9716
      longitude: 77.5946
      radius_meters: 200
    - name: Pune
      latitude: 18.5204
      longitude: 73.8567
      radius_meters: 300

tax:
  default_regime: new
  regimes:
    new:
      preset: india_new
    old:
      standard_deduction: 50000
      slabs:
        - {up_to: 250000, rate: 0}
        - {up_to: 500000, rate: 0.05}
        - {up_to: 1000000, rate: 0.20}
        - {rate: 0.30}
`

// Default parses DefaultRulesYAML.
func Default() (*Rules, error) {
	rules, err := Parse([]byte(DefaultRulesYAML), FormatYAML)
	if err != nil {
		return nil, err
	}
	rules.Source = "builtin"
	return rules, nil
}
