// Package orchestrator runs canned multi-tool automotive workflows without
// involving a language model. Each scenario chains tool outputs the way an
// assistant would, which makes it useful for demos and integration checks.
package orchestrator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/tools"
)

// Result is the outcome of a scenario run.
type Result struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	ToolCalls []interface{} `json:"tool_calls"`
	Summary   string        `json:"summary"`
}

type runner func() ([]interface{}, string)

// Orchestrator executes named scenarios over the automotive tool set.
type Orchestrator struct {
	logger    logging.Logger
	scenarios map[string]runner
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator with the built-in scenarios.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{logger: logging.Nop()}
	o.scenarios = map[string]runner{
		"check_engine": runCheckEngine,
		"route_risk":   runRouteRisk,
		"pre_trip":     runPreTrip,
		"safe_drive":   runSafeDrive,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Scenarios lists the available scenario names in sorted order.
func (o *Orchestrator) Scenarios() []string {
	names := make([]string, 0, len(o.scenarios))
	for name := range o.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named scenario. Unknown names are an error.
func (o *Orchestrator) Run(name string) (*Result, error) {
	run, ok := o.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}

	runID := uuid.NewString()
	o.logger.Info("running scenario",
		logging.String("scenario", name),
		logging.String("run_id", runID))

	calls, summary := run()
	return &Result{
		RunID:     runID,
		Scenario:  name,
		ToolCalls: calls,
		Summary:   summary,
	}, nil
}

func runCheckEngine() ([]interface{}, string) {
	diag := tools.Diagnostics("P0301")
	know := tools.Knowledge(diag.OBDCode)
	maint := tools.Maintenance(42000)
	return []interface{}{diag, know, maint},
		"Diagnosed check-engine issue with explanation and service plan."
}

func runRouteRisk() ([]interface{}, string) {
	route := tools.Navigation("Airport")
	weather := tools.Weather("airport corridor")
	emergency := tools.Emergency(weather.RiskLevel)
	return []interface{}{route, weather, emergency},
		"Generated route with weather-aware risk advisory and contingency guidance."
}

func runPreTrip() ([]interface{}, string) {
	vehicle := tools.VehicleInfo("DEMO-VIN-123")
	maint := tools.Maintenance(vehicle.Mileage)
	diag := tools.Diagnostics("P0101")
	return []interface{}{vehicle, maint, diag},
		"Completed pre-trip readiness check using vehicle profile and diagnostics."
}

func runSafeDrive() ([]interface{}, string) {
	weather := tools.Weather("downtown")
	route := tools.Navigation("Home")
	emergency := tools.Emergency(weather.RiskLevel)
	knowledge := tools.Knowledge(weather.Condition)
	return []interface{}{weather, route, emergency, knowledge},
		"Produced safe-driving advice based on real-time environmental context."
}
