// Package openapi generates the OpenAPI 3.1 document describing the fleet
// API, served at /openapi.json.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// GenerateSpec builds the OpenAPI document for the fleet API.
func GenerateSpec(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "BriteBottle Fleet API",
			Description: "Fleet management API for BriteBottle glass crushers: telemetry, events, alerts, routes, and role-based administration.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
	doc.Components.Schemas["Crusher"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":           stringSchema(""),
		"name":         stringSchema(""),
		"type":         stringSchema(""),
		"serial":       stringSchema(""),
		"location":     stringSchema(""),
		"customer":     stringSchema(""),
		"lat":          numberSchema(),
		"lng":          numberSchema(),
		"status":       stringSchema(""),
		"fillLevel":    numberSchema(),
		"mainsVoltage": numberSchema(),
		"crushedToday": intSchema(),
		"alertsCount":  intSchema(),
		"metrics": objectSchema(map[string]*openapi3.SchemaRef{
			"vibration":   numberSchema(),
			"temperature": numberSchema(),
		}),
		"lastEmptied": stringSchema("date-time"),
		"lastSync":    stringSchema("date-time"),
		"lockedUntil": stringSchema("date-time"),
	})
	doc.Components.Schemas["Role"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":    stringSchema(""),
		"name":  stringSchema(""),
		"power": intSchema(),
		"permissions": objectSchema(map[string]*openapi3.SchemaRef{
			"canManageRoles": boolSchema(),
			"canAssignRoles": boolSchema(),
			"view":           objectSchema(nil),
		}),
	})
	doc.Components.Schemas["User"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":       stringSchema(""),
		"name":     stringSchema(""),
		"email":    stringSchema("email"),
		"approved": boolSchema(),
		"role":     refSchema("Role"),
	})
	doc.Components.Schemas["Event"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":        stringSchema(""),
		"crusherId": stringSchema(""),
		"ts":        stringSchema("date-time"),
		"type":      stringSchema(""),
		"level":     stringSchema(""),
		"message":   stringSchema(""),
		"source":    stringSchema(""),
		"qty":       intSchema(),
	})
	doc.Components.Schemas["Alert"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":      stringSchema(""),
		"level":   stringSchema(""),
		"source":  stringSchema(""),
		"message": stringSchema(""),
		"ts":      stringSchema("date-time"),
	})

	doc.Paths = openapi3.NewPaths()
	addPath(doc, "/api/v1/auth/login", "post", "Login", "Authenticate with email and password, returns a JWT.", false)
	addPath(doc, "/api/v1/auth/register", "post", "Register", "Self-service registration, pending approval.", false)
	addPath(doc, "/api/v1/auth/forgot", "post", "ForgotPassword", "Issue a password reset token.", false)
	addPath(doc, "/api/v1/auth/reset", "post", "ResetPassword", "Consume a reset token and set a new password.", false)
	addPath(doc, "/api/v1/auth/whoami", "get", "Whoami", "Resolve the current session to a user and role.", true)
	addPath(doc, "/api/v1/crushers", "get", "ListCrushers", "List the fleet; telemetry is masked per role.", true)
	addPath(doc, "/api/v1/crushers", "post", "CreateCrusher", "Register a new crusher.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}", "get", "GetCrusher", "Fetch one crusher.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}", "patch", "UpdateCrusher", "Partially update a crusher.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}", "delete", "DeleteCrusher", "Remove a crusher.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}/lock", "post", "LockCrusher", "Lock a crusher for a number of hours.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}/events", "get", "ListCrusherEvents", "Events for one crusher.", true)
	addPath(doc, "/api/v1/crushers/{crusherId}/events", "post", "AppendEvent", "Append a lifecycle event.", true)
	addPath(doc, "/api/v1/events", "get", "ListEvents", "Filtered event feed, newest first.", true)
	addPath(doc, "/api/v1/alerts", "get", "ListAlerts", "Newest alerts.", true)
	addPath(doc, "/api/v1/routes", "get", "ListRoutes", "Collection routes.", true)
	addPath(doc, "/api/v1/dashboard/summary", "get", "DashboardSummary", "Fleet counters for the dashboard.", true)
	addPath(doc, "/api/v1/roles", "get", "ListRoles", "List roles.", true)
	addPath(doc, "/api/v1/roles", "post", "CreateRole", "Create a role below your power.", true)
	addPath(doc, "/api/v1/roles/{roleId}", "patch", "UpdateRole", "Partially update a role you outrank.", true)
	addPath(doc, "/api/v1/roles/{roleId}", "delete", "DeleteRole", "Delete an unreferenced role you outrank.", true)
	addPath(doc, "/api/v1/users", "get", "ListUsers", "List users with roles hydrated.", true)
	addPath(doc, "/api/v1/users", "post", "CreateUser", "Create an approved account.", true)
	addPath(doc, "/api/v1/users/{userId}", "get", "GetUser", "Fetch one user.", true)
	addPath(doc, "/api/v1/users/{userId}", "patch", "UpdateUser", "Partially update a user.", true)
	addPath(doc, "/api/v1/users/{userId}", "delete", "DeleteUser", "Remove a user.", true)
	addPath(doc, "/api/v1/users/{userId}/approve", "post", "SetApproval", "Approve or pause an account.", true)
	addPath(doc, "/api/v1/users/{userId}/role", "post", "AssignRole", "Assign a role by ID or name.", true)
	addPath(doc, "/api/v1/ingest/{crusherId}/crush", "post", "IngestCrush", "Device report: bottles crushed.", true)
	addPath(doc, "/api/v1/ingest/{crusherId}/empty", "post", "IngestEmpty", "Device report: emptied.", true)
	addPath(doc, "/api/v1/ingest/{crusherId}/telemetry", "post", "IngestTelemetry", "Device report: sensor readings.", true)
	addPath(doc, "/api/v1/ingest/{crusherId}/alert", "post", "IngestAlert", "Device report: alert.", true)

	return doc
}

func addPath(doc *openapi3.T, path, method, opID, summary string, secured bool) {
	op := &openapi3.Operation{
		OperationID: opID,
		Summary:     summary,
		Responses:   openapi3.NewResponses(),
	}
	if !secured {
		op.Security = &openapi3.SecurityRequirements{}
	}

	item := doc.Paths.Find(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}
	item.SetOperation(method2HTTP(method), op)
}

func method2HTTP(m string) string {
	switch m {
	case "get":
		return "GET"
	case "post":
		return "POST"
	case "patch":
		return "PATCH"
	case "delete":
		return "DELETE"
	default:
		return "GET"
	}
}

func objectSchema(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: &openapi3.Types{"object"}}
	if props != nil {
		s.Properties = openapi3.Schemas{}
		for k, v := range props {
			s.Properties[k] = v
		}
	}
	return &openapi3.SchemaRef{Value: s}
}

func stringSchema(format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: format}}
}

func numberSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}
}

func intSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}
}

func boolSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func refSchema(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}
