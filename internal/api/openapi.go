package api

// buildOpenAPIDoc returns an OpenAPI 3.1 document describing the relay endpoints.
func buildOpenAPIDoc(version string) map[string]any {
	if version == "" {
		version = "dev"
	}

	jsonResponse := func(description string) map[string]any {
		return map[string]any{
			"description": description,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"type": "object"},
				},
			},
		}
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "envios-relay",
			"version": version,
		},
		"paths": map[string]any{
			"/": map[string]any{
				"get": map[string]any{
					"operationId": "health",
					"summary":     "Health check",
					"tags":        []string{"health"},
					"responses":   map[string]any{"200": jsonResponse(`{"status":"ok"}`)},
				},
			},
			"/consultar-envio": map[string]any{
				"get": map[string]any{
					"operationId": "consultar_envio",
					"summary":     "Look up a shipment contact in HubSpot by tracking number",
					"tags":        []string{"envios"},
					"parameters": []any{map[string]any{
						"name":     "guia",
						"in":       "query",
						"required": true,
						"schema":   map[string]any{"type": "string"},
					}},
					"responses": map[string]any{
						"200": jsonResponse("Contact properties, or {\"error\": ...} when not found or HubSpot fails"),
						"422": jsonResponse("Missing guia"),
						"502": jsonResponse("HubSpot unreachable"),
					},
				},
			},
			"/webhook": map[string]any{
				"post": map[string]any{
					"operationId": "webhook_hubspot",
					"summary":     "Receive a HubSpot webhook and append it to the event log",
					"tags":        []string{"webhooks"},
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{"schema": map[string]any{}},
						},
					},
					"responses": map[string]any{
						"200": jsonResponse(`{"status":"ok"}`),
						"400": jsonResponse("Body is not JSON"),
						"401": jsonResponse("Invalid signature"),
						"413": jsonResponse("Payload too large"),
					},
				},
			},
			"/ver-webhooks": map[string]any{
				"get": map[string]any{
					"operationId": "ver_webhooks",
					"summary":     "List stored webhook events in arrival order",
					"tags":        []string{"webhooks"},
					"responses":   map[string]any{"200": jsonResponse(`{"events": [...]}`)},
				},
			},
		},
	}
}
