/*
Package factory converts rules files into validated engine snapshots.

PURPOSE:
  Business rules (calendar, geofence, tax regimes) are owned by HR, not by
  code. This package reads them from YAML or JSON, validates every
  required field and compiles them into an immutable Rules value. The
  engine packages never see the file format.

FILE SCHEMA (YAML shown, JSON uses the same keys):
  company:
    name: Warp Technologies
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
    support:              # fields left out inherit from calendar
      working_days: [0, 1, 2, 3, 4, 5, 6]
      non_working_days: []
  geofence:
    enabled: true
    enforce_check_in: true
    offices:
      - {name: HQ, latitude: 12.9716, longitude: 77.5946, radius_meters: 200, active: true}
  tax:
    default_regime: new
    regimes:
      new: {preset: india_new}
      old:
        standard_deduction: 50000
        slabs:
          - {up_to: 250000, rate: 0}
          - {up_to: 500000, rate: 0.05}
          - {up_to: 1000000, rate: 0.20}
          - {rate: 0.30}

NO SILENT DEFAULTS:
  A missing calendar field is a *core.ConfigurationError naming it. A tax
  preset is used only when the file names it.

SEE ALSO:
  - registry.go: Atomic snapshot holder with reload
  - calendar/config.go, geofence/config.go, payroll/tax.go: Validation
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// Number is a decimal literal kept as text so amounts never pass through
// float64. It accepts YAML scalars and JSON numbers or strings.
type Number string

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = Number(node.Value)
	return nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(strings.Trim(string(b), `"`))
	return nil
}

func (n Number) set() bool { return strings.TrimSpace(string(n)) != "" && n != "null" }

func (n Number) decimal(field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(n)))
	if err != nil {
		return decimal.Zero, &core.ConfigurationError{Field: field, Reason: fmt.Sprintf("invalid number %q", string(n))}
	}
	return d, nil
}

type RulesFile struct {
	Company     CompanyFile             `yaml:"company" json:"company"`
	Calendar    CalendarFile            `yaml:"calendar" json:"calendar"`
	Departments map[string]CalendarFile `yaml:"departments" json:"departments"`
	Geofence    GeofenceFile            `yaml:"geofence" json:"geofence"`
	Tax         TaxFile                 `yaml:"tax" json:"tax"`
}

type CompanyFile struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}

// CalendarFile mirrors calendar.Config. In a department override every
// field is optional and falls back to the top-level calendar.
type CalendarFile struct {
	Timezone         string `yaml:"timezone" json:"timezone"`
	WorkStartTime    string `yaml:"work_start_time" json:"work_start_time"`
	WorkEndTime      string `yaml:"work_end_time" json:"work_end_time"`
	LateThreshold    string `yaml:"late_threshold" json:"late_threshold"`
	HalfDayEndTime   string `yaml:"half_day_end_time" json:"half_day_end_time"`
	MinimumWorkHours Number `yaml:"minimum_work_hours" json:"minimum_work_hours"`
	FullDayHours     Number `yaml:"full_day_hours" json:"full_day_hours"`
	WorkingDays      []int  `yaml:"working_days" json:"working_days"`
	NonWorkingDays   []int  `yaml:"non_working_days" json:"non_working_days"`
	SaturdayWorkType string `yaml:"saturday_work_type" json:"saturday_work_type"`
	SaturdayHolidays []int  `yaml:"saturday_holidays" json:"saturday_holidays"`
}

type GeofenceFile struct {
	Enabled         bool         `yaml:"enabled" json:"enabled"`
	EnforceCheckIn  bool         `yaml:"enforce_check_in" json:"enforce_check_in"`
	EnforceCheckOut bool         `yaml:"enforce_check_out" json:"enforce_check_out"`
	AllowWFHBypass  bool         `yaml:"allow_wfh_bypass" json:"allow_wfh_bypass"`
	Offices         []OfficeFile `yaml:"offices" json:"offices"`
}

type OfficeFile struct {
	Name         string  `yaml:"name" json:"name"`
	Latitude     float64 `yaml:"latitude" json:"latitude"`
	Longitude    float64 `yaml:"longitude" json:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters" json:"radius_meters"`
	Active       *bool   `yaml:"active" json:"active"` // omitted means active
}

type TaxFile struct {
	DefaultRegime string                `yaml:"default_regime" json:"default_regime"`
	Regimes       map[string]RegimeFile `yaml:"regimes" json:"regimes"`
}

type RegimeFile struct {
	Preset            string     `yaml:"preset" json:"preset"`
	StandardDeduction Number     `yaml:"standard_deduction" json:"standard_deduction"`
	Slabs             []SlabFile `yaml:"slabs" json:"slabs"`
}

type SlabFile struct {
	UpTo Number `yaml:"up_to" json:"up_to"`
	Rate Number `yaml:"rate" json:"rate"`
}

// Named tax presets a rules file may reference.
const (
	PresetIndiaNew = "india_new"
	PresetIndiaOld = "india_old"
)

// =============================================================================
// RULES - Compiled snapshot
// =============================================================================

// Rules is an immutable, fully validated snapshot. Callers take one Rules
// per operation and use it throughout.
type Rules struct {
	Company       payroll.CompanyInfo
	Calendar      *calendar.Calendar
	Departments   map[string]*calendar.Calendar
	Geofence      geofence.Config
	Regimes       map[payroll.Regime]payroll.TaxRegimeConfig
	DefaultRegime payroll.Regime
	Source        string
	LoadedAt      time.Time
}

// CalendarFor returns the department's calendar, or the organization
// calendar when the department has no override.
func (r *Rules) CalendarFor(department string) *calendar.Calendar {
	if c, ok := r.Departments[department]; ok {
		return c
	}
	return r.Calendar
}

// Regime returns a configured regime. An empty id selects the default.
func (r *Rules) Regime(id payroll.Regime) (payroll.TaxRegimeConfig, error) {
	if id == "" {
		id = r.DefaultRegime
	}
	cfg, ok := r.Regimes[id]
	if !ok {
		return payroll.TaxRegimeConfig{}, &core.ConfigurationError{
			Field:  "tax.regimes." + string(id),
			Reason: "regime is not configured",
		}
	}
	return cfg, nil
}

// DepartmentNames lists departments with a calendar override, sorted.
func (r *Rules) DepartmentNames() []string {
	names := make([]string, 0, len(r.Departments))
	for n := range r.Departments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// PARSING
// =============================================================================

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks a format from a file extension. Anything but .json is YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads and compiles a rules file.
func LoadFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rules, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	rules.Source = path
	return rules, nil
}

// Parse decodes and compiles rules.
func Parse(data []byte, format Format) (*Rules, error) {
	var rf RulesFile
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown rules format %q", format)
	}
	return FromFile(rf)
}

// FromFile compiles a decoded rules file.
func FromFile(rf RulesFile) (*Rules, error) {
	if strings.TrimSpace(rf.Company.Name) == "" {
		return nil, &core.ConfigurationError{Field: "company.name", Reason: "required"}
	}
	rules := &Rules{
		Company:     payroll.CompanyInfo{Name: rf.Company.Name, Address: rf.Company.Address},
		Departments: make(map[string]*calendar.Calendar, len(rf.Departments)),
		Regimes:     make(map[payroll.Regime]payroll.TaxRegimeConfig, len(rf.Tax.Regimes)),
		LoadedAt:    time.Now(),
	}

	base, err := parseCalendar(rf.Calendar, "calendar.")
	if err != nil {
		return nil, err
	}
	if rules.Calendar, err = calendar.New(base); err != nil {
		return nil, prefixConfig(err, "calendar.")
	}
	for name, override := range rf.Departments {
		merged, err := parseCalendar(mergeCalendar(rf.Calendar, override), "departments."+name+".")
		if err != nil {
			return nil, err
		}
		cal, err := calendar.New(merged)
		if err != nil {
			return nil, prefixConfig(err, "departments."+name+".")
		}
		rules.Departments[name] = cal
	}

	rules.Geofence = parseGeofence(rf.Geofence)
	if err := rules.Geofence.Validate(); err != nil {
		return nil, err
	}

	if len(rf.Tax.Regimes) == 0 {
		return nil, &core.ConfigurationError{Field: "tax.regimes", Reason: "at least one regime is required"}
	}
	for id, file := range rf.Tax.Regimes {
		cfg, err := parseRegime(payroll.Regime(id), file)
		if err != nil {
			return nil, err
		}
		rules.Regimes[cfg.Regime] = cfg
	}
	rules.DefaultRegime = payroll.Regime(rf.Tax.DefaultRegime)
	if rules.DefaultRegime == "" {
		return nil, &core.ConfigurationError{Field: "tax.default_regime", Reason: "required"}
	}
	if _, err := rules.Regime(rules.DefaultRegime); err != nil {
		return nil, &core.ConfigurationError{Field: "tax.default_regime", Reason: "names a regime that is not configured"}
	}
	return rules, nil
}

func parseCalendar(cf CalendarFile, prefix string) (calendar.Config, error) {
	cfg := calendar.Config{
		Timezone:         cf.Timezone,
		SaturdayWorkType: calendar.SaturdayWorkType(cf.SaturdayWorkType),
		SaturdayHolidays: cf.SaturdayHolidays,
	}

	times := []struct {
		field string
		raw   string
		dst   *calendar.TimeOfDay
	}{
		{"work_start_time", cf.WorkStartTime, &cfg.WorkStart},
		{"work_end_time", cf.WorkEndTime, &cfg.WorkEnd},
		{"late_threshold", cf.LateThreshold, &cfg.LateThreshold},
		{"half_day_end_time", cf.HalfDayEndTime, &cfg.HalfDayEnd},
	}
	for _, t := range times {
		if t.raw == "" {
			continue // reported as required by calendar.Config.Validate
		}
		tod, err := calendar.ParseTimeOfDay(t.raw)
		if err != nil {
			return calendar.Config{}, &core.ConfigurationError{Field: prefix + t.field, Reason: err.Error()}
		}
		*t.dst = tod
	}

	hours := []struct {
		field string
		raw   Number
		dst   *decimal.Decimal
	}{
		{"minimum_work_hours", cf.MinimumWorkHours, &cfg.MinimumWorkHours},
		{"full_day_hours", cf.FullDayHours, &cfg.FullDayHours},
	}
	for _, h := range hours {
		if !h.raw.set() {
			continue
		}
		d, err := h.raw.decimal(prefix + h.field)
		if err != nil {
			return calendar.Config{}, err
		}
		*h.dst = d
	}

	cfg.WorkingDays = weekdays(cf.WorkingDays)
	cfg.NonWorkingDays = weekdays(cf.NonWorkingDays)
	return cfg, nil
}

func weekdays(in []int) []time.Weekday {
	out := make([]time.Weekday, 0, len(in))
	for _, d := range in {
		out = append(out, time.Weekday(d))
	}
	return out
}

// mergeCalendar overlays the set fields of override on base.
func mergeCalendar(base, override CalendarFile) CalendarFile {
	out := base
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&out.Timezone, override.Timezone)
	str(&out.WorkStartTime, override.WorkStartTime)
	str(&out.WorkEndTime, override.WorkEndTime)
	str(&out.LateThreshold, override.LateThreshold)
	str(&out.HalfDayEndTime, override.HalfDayEndTime)
	str(&out.SaturdayWorkType, override.SaturdayWorkType)
	if override.MinimumWorkHours.set() {
		out.MinimumWorkHours = override.MinimumWorkHours
	}
	if override.FullDayHours.set() {
		out.FullDayHours = override.FullDayHours
	}
	if override.WorkingDays != nil {
		out.WorkingDays = override.WorkingDays
	}
	if override.NonWorkingDays != nil {
		out.NonWorkingDays = override.NonWorkingDays
	}
	if override.SaturdayHolidays != nil {
		out.SaturdayHolidays = override.SaturdayHolidays
	}
	return out
}

func prefixConfig(err error, prefix string) error {
	var ce *core.ConfigurationError
	if errors.As(err, &ce) {
		return &core.ConfigurationError{Field: prefix + ce.Field, Reason: ce.Reason}
	}
	return err
}

func parseGeofence(gf GeofenceFile) geofence.Config {
	cfg := geofence.Config{
		Enabled:         gf.Enabled,
		EnforceCheckIn:  gf.EnforceCheckIn,
		EnforceCheckOut: gf.EnforceCheckOut,
		AllowWFHBypass:  gf.AllowWFHBypass,
	}
	for _, o := range gf.Offices {
		active := o.Active == nil || *o.Active
		cfg.Offices = append(cfg.Offices, geofence.OfficeLocation{
			Name:         o.Name,
			Latitude:     o.Latitude,
			Longitude:    o.Longitude,
			RadiusMeters: o.RadiusMeters,
			Active:       active,
		})
	}
	return cfg
}

func parseRegime(id payroll.Regime, rf RegimeFile) (payroll.TaxRegimeConfig, error) {
	field := "tax.regimes." + string(id)
	if rf.Preset != "" {
		if len(rf.Slabs) > 0 || rf.StandardDeduction.set() {
			return payroll.TaxRegimeConfig{}, &core.ConfigurationError{Field: field, Reason: "preset and explicit slabs are exclusive"}
		}
		var cfg payroll.TaxRegimeConfig
		switch rf.Preset {
		case PresetIndiaNew:
			cfg = payroll.NewRegime()
		case PresetIndiaOld:
			cfg = payroll.OldRegime()
		default:
			return payroll.TaxRegimeConfig{}, &core.ConfigurationError{Field: field + ".preset", Reason: "unknown preset " + rf.Preset}
		}
		if cfg.Regime != id {
			return payroll.TaxRegimeConfig{}, &core.ConfigurationError{
				Field:  field + ".preset",
				Reason: fmt.Sprintf("preset %s is a %s regime schedule", rf.Preset, cfg.Regime),
			}
		}
		return cfg, nil
	}

	cfg := payroll.TaxRegimeConfig{Regime: id}
	if !rf.StandardDeduction.set() {
		return payroll.TaxRegimeConfig{}, &core.ConfigurationError{Field: field + ".standard_deduction", Reason: "required"}
	}
	sd, err := rf.StandardDeduction.decimal(field + ".standard_deduction")
	if err != nil {
		return payroll.TaxRegimeConfig{}, err
	}
	cfg.StandardDeduction = core.MoneyFromDecimal(sd)

	for i, s := range rf.Slabs {
		sf := fmt.Sprintf("%s.slabs[%d]", field, i)
		if !s.Rate.set() {
			return payroll.TaxRegimeConfig{}, &core.ConfigurationError{Field: sf + ".rate", Reason: "required"}
		}
		r, err := s.Rate.decimal(sf + ".rate")
		if err != nil {
			return payroll.TaxRegimeConfig{}, err
		}
		slab := payroll.Slab{Rate: r}
		if s.UpTo.set() {
			up, err := s.UpTo.decimal(sf + ".up_to")
			if err != nil {
				return payroll.TaxRegimeConfig{}, err
			}
			m := core.MoneyFromDecimal(up)
			slab.UpTo = &m
		}
		cfg.Slabs = append(cfg.Slabs, slab)
	}
	if err := cfg.Validate(); err != nil {
		return payroll.TaxRegimeConfig{}, err
	}
	return cfg, nil
}
