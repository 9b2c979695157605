package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motormind/autoassist/pkg/tools"
)

func TestScenarios(t *testing.T) {
	o := New()
	assert.Equal(t, []string{"check_engine", "pre_trip", "route_risk", "safe_drive"}, o.Scenarios())
}

func TestRunUnknownScenario(t *testing.T) {
	o := New()
	_, err := o.Run("tow_truck")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
}

func TestRunCheckEngine(t *testing.T) {
	o := New()
	result, err := o.Run("check_engine")
	require.NoError(t, err)

	assert.Equal(t, "check_engine", result.Scenario)
	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)

	require.Len(t, result.ToolCalls, 3)
	diag, ok := result.ToolCalls[0].(tools.DiagnosticsResult)
	require.True(t, ok)
	assert.Equal(t, "P0301", diag.OBDCode)
	assert.Equal(t, "medium", diag.Severity)

	know, ok := result.ToolCalls[1].(tools.KnowledgeResult)
	require.True(t, ok)
	assert.Equal(t, "P0301", know.Topic)

	maint, ok := result.ToolCalls[2].(tools.MaintenanceResult)
	require.True(t, ok)
	assert.Equal(t, 42000, maint.Mileage)
	assert.Equal(t, []string{"brake fluid", "air filter"}, maint.OverdueItems)
}

func TestRunRouteRiskChainsWeatherRisk(t *testing.T) {
	o := New()
	result, err := o.Run("route_risk")
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 3)

	weather, ok := result.ToolCalls[1].(tools.WeatherResult)
	require.True(t, ok)
	emergency, ok := result.ToolCalls[2].(tools.EmergencyResult)
	require.True(t, ok)
	assert.Equal(t, weather.RiskLevel, emergency.RiskLevel)
	assert.Contains(t, emergency.Recommendation, "roadside assistance")
}

func TestRunPreTripUsesVehicleMileage(t *testing.T) {
	o := New()
	result, err := o.Run("pre_trip")
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 3)

	vehicle, ok := result.ToolCalls[0].(tools.VehicleInfoResult)
	require.True(t, ok)
	maint, ok := result.ToolCalls[1].(tools.MaintenanceResult)
	require.True(t, ok)
	assert.Equal(t, vehicle.Mileage, maint.Mileage)
}

func TestRunSafeDriveChainsCondition(t *testing.T) {
	o := New()
	result, err := o.Run("safe_drive")
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 4)

	weather, ok := result.ToolCalls[0].(tools.WeatherResult)
	require.True(t, ok)
	knowledge, ok := result.ToolCalls[3].(tools.KnowledgeResult)
	require.True(t, ok)
	assert.Equal(t, weather.Condition, knowledge.Topic)
	assert.Contains(t, knowledge.Explanation, "stopping distance")
}

func TestResultMarshalsCleanly(t *testing.T) {
	o := New()
	result, err := o.Run("check_engine")
	require.NoError(t, err)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"scenario":"check_engine"`)
	assert.Contains(t, string(encoded), `"tool_calls"`)
}

func TestRunIDsAreUnique(t *testing.T) {
	o := New()
	first, err := o.Run("safe_drive")
	require.NoError(t, err)
	second, err := o.Run("safe_drive")
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}
