package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// DashboardSummary aggregates fleet-wide figures for the landing page.
type DashboardSummary struct {
	CrushedToday   int `json:"crushedToday"`
	Queue          int `json:"queue"`
	AlertsOpen     int `json:"alertsOpen"`
	ActiveCrushers int `json:"activeCrushers"`
}
