package tools

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/motormind/autoassist/pkg/protocol"
)

// Default argument values applied when the caller omits a field.
const (
	defaultOBDCode     = "P0301"
	defaultDestination = "Office"
	defaultRegion      = "city"
	defaultMileage     = 42000
	defaultRiskLevel   = "low"
	defaultTopic       = "P0301"
	defaultVIN         = "DEMO-VIN-123"
)

// DiagnosticsResult is the outcome of an OBD-II trouble code lookup.
type DiagnosticsResult struct {
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	OBDCode   string `json:"obd_code"`
	Severity  string `json:"severity"`
	Summary   string `json:"summary"`
}

// Diagnostics runs a mock diagnostic for the given trouble code.
func Diagnostics(obdCode string) DiagnosticsResult {
	severity := "low"
	if strings.HasPrefix(obdCode, "P03") {
		severity = "medium"
	}
	summary := "Generic diagnostic result"
	if obdCode == "P0301" {
		summary = "Engine misfire detected on cylinder 1"
	}
	return DiagnosticsResult{
		Service:   "Diagnostics",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		OBDCode:   obdCode,
		Severity:  severity,
		Summary:   summary,
	}
}

// NavigationResult is a mock route.
type NavigationResult struct {
	Service       string `json:"service"`
	Destination   string `json:"destination"`
	DistanceKM    int    `json:"distance_km"`
	ETAMinutes    int    `json:"eta_minutes"`
	RouteRiskZone string `json:"route_risk_zone"`
}

// Navigation returns mock route guidance for a destination.
func Navigation(destination string) NavigationResult {
	return NavigationResult{
		Service:       "Navigation",
		Destination:   destination,
		DistanceKM:    24,
		ETAMinutes:    38,
		RouteRiskZone: "moderate",
	}
}

// WeatherResult is a mock weather report.
type WeatherResult struct {
	Service    string `json:"service"`
	Region     string `json:"region"`
	Condition  string `json:"condition"`
	Visibility string `json:"visibility"`
	RiskLevel  string `json:"risk_level"`
}

// Weather returns mock conditions for a route region.
func Weather(region string) WeatherResult {
	return WeatherResult{
		Service:    "Weather",
		Region:     region,
		Condition:  "heavy rain",
		Visibility: "reduced",
		RiskLevel:  "high",
	}
}

// MaintenanceResult is a mock service recommendation.
type MaintenanceResult struct {
	Service               string   `json:"service"`
	Mileage               int      `json:"mileage"`
	OverdueItems          []string `json:"overdue_items"`
	RecommendedWindowDays int      `json:"recommended_window_days"`
}

// Maintenance returns mock recommendations based on mileage. Vehicles past
// 40000 have overdue items and a tighter service window.
func Maintenance(currentMileage int) MaintenanceResult {
	overdue := []string{}
	window := 30
	if currentMileage > 40000 {
		overdue = []string{"brake fluid", "air filter"}
		window = 7
	}
	return MaintenanceResult{
		Service:               "Maintenance",
		Mileage:               currentMileage,
		OverdueItems:          overdue,
		RecommendedWindowDays: window,
	}
}

// EmergencyResult is a mock contingency recommendation.
type EmergencyResult struct {
	Service        string `json:"service"`
	RiskLevel      string `json:"risk_level"`
	Recommendation string `json:"recommendation"`
}

// Emergency returns a driving recommendation for a risk level.
func Emergency(riskLevel string) EmergencyResult {
	recommendation := "Drive with caution and monitor conditions"
	if riskLevel == "high" || riskLevel == "severe" {
		recommendation = "Avoid travel and keep roadside assistance on standby"
	}
	return EmergencyResult{
		Service:        "Emergency",
		RiskLevel:      riskLevel,
		Recommendation: recommendation,
	}
}

// KnowledgeResult is a mock explanation lookup.
type KnowledgeResult struct {
	Service     string `json:"service"`
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
}

var knowledgeBase = map[string]string{
	"P0301":      "Misfire in cylinder 1 can impact fuel economy and emissions.",
	"heavy rain": "Reduced visibility and braking performance increase stopping distance.",
}

// Knowledge returns an explanation for a topic or trouble code.
func Knowledge(topic string) KnowledgeResult {
	explanation, ok := knowledgeBase[topic]
	if !ok {
		explanation = "General automotive guidance."
	}
	return KnowledgeResult{
		Service:     "Knowledge",
		Topic:       topic,
		Explanation: explanation,
	}
}

// VehicleInfoResult is the mock vehicle profile.
type VehicleInfoResult struct {
	Service string `json:"service"`
	VIN     string `json:"vin"`
	Model   string `json:"model"`
	Year    int    `json:"year"`
	Mileage int    `json:"mileage"`
}

// VehicleInfo returns the demo vehicle profile.
func VehicleInfo(vin string) VehicleInfoResult {
	return VehicleInfoResult{
		Service: "Vehicle Info",
		VIN:     vin,
		Model:   "Demo EV Sedan",
		Year:    2022,
		Mileage: defaultMileage,
	}
}

// DefaultRegistry builds the registry of the seven automotive tools.
func DefaultRegistry() *Registry {
	entries := []Entry{
		{
			Tool: protocol.Tool{
				Name:        "diagnostics",
				Description: "Run diagnostics for a given OBD-II trouble code.",
				InputSchema: objectSchema(`{"obd_code":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					OBDCode string `json:"obd_code"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.OBDCode == "" {
					in.OBDCode = defaultOBDCode
				}
				return Diagnostics(in.OBDCode), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "navigation",
				Description: "Get route guidance for a destination.",
				InputSchema: objectSchema(`{"destination":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					Destination string `json:"destination"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.Destination == "" {
					in.Destination = defaultDestination
				}
				return Navigation(in.Destination), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "weather",
				Description: "Get weather conditions and risk for a region.",
				InputSchema: objectSchema(`{"route_region":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					RouteRegion string `json:"route_region"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.RouteRegion == "" {
					in.RouteRegion = defaultRegion
				}
				return Weather(in.RouteRegion), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "maintenance",
				Description: "Get maintenance recommendations based on mileage.",
				InputSchema: objectSchema(`{"current_mileage":{"type":"integer"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					CurrentMileage *int `json:"current_mileage"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				mileage := defaultMileage
				if in.CurrentMileage != nil {
					mileage = *in.CurrentMileage
				}
				return Maintenance(mileage), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "emergency",
				Description: "Get emergency driving recommendation for a risk level.",
				InputSchema: objectSchema(`{"risk_level":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					RiskLevel string `json:"risk_level"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.RiskLevel == "" {
					in.RiskLevel = defaultRiskLevel
				}
				return Emergency(in.RiskLevel), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "knowledge",
				Description: "Get automotive knowledge/explanation for a topic or code.",
				InputSchema: objectSchema(`{"topic":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					Topic string `json:"topic"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.Topic == "" {
					in.Topic = defaultTopic
				}
				return Knowledge(in.Topic), nil
			},
		},
		{
			Tool: protocol.Tool{
				Name:        "vehicle_info",
				Description: "Get current vehicle profile details.",
				InputSchema: objectSchema(`{"vin":{"type":"string"}}`),
			},
			Handler: func(args json.RawMessage) (interface{}, error) {
				var in struct {
					VIN string `json:"vin"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, err
				}
				if in.VIN == "" {
					in.VIN = defaultVIN
				}
				return VehicleInfo(in.VIN), nil
			},
		},
	}

	registry, err := NewRegistry(entries...)
	if err != nil {
		// Entries are static; a failure here is a programming error.
		panic(err)
	}
	return registry
}
