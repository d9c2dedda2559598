// Package docs holds the OpenAPI document served under /swagger when the
// binary is built with -tags=swagger. Regenerate with `swag init -g cmd/vistora/docs.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/jobs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs, most recently updated first",
                "parameters": [{"type": "string", "description": "only jobs of this user", "name": "user", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.JobList"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Create a restoration job",
                "parameters": [{"description": "job", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CreateJobRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.Job"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "unknown profile", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get a job",
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Job"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/jobs/{id}/cancel": {
            "post": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Cancel a queued job",
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Job"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Job events after a sequence number",
                "parameters": [
                    {"type": "integer", "description": "last seen sequence", "name": "since", "in": "query"},
                    {"type": "integer", "description": "long-poll seconds", "name": "wait", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.EventList"}}}
            }
        },
        "/api/v1/credits/{user}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["credits"],
                "summary": "Credit balance",
                "parameters": [{"type": "string", "description": "user id", "name": "user", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Balance"}}}
            }
        },
        "/api/v1/credits/{user}/topup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["credits"],
                "summary": "Add credits",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "user", "in": "path", "required": true},
                    {"description": "amount", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.TopupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TopupResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/credits/{user}/transactions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["credits"],
                "summary": "Ledger entries in append order",
                "parameters": [{"type": "string", "description": "user id", "name": "user", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TransactionList"}}}
            }
        },
        "/api/v1/profiles": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "List profiles",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ProfileList"}}}
            }
        },
        "/api/v1/profiles/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get a profile",
                "parameters": [{"type": "string", "description": "profile name", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Profile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Create or replace a profile",
                "parameters": [
                    {"type": "string", "description": "profile name", "name": "name", "in": "path", "required": true},
                    {"description": "settings", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ProfileUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/models/catalog": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Model cards and quality presets",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Catalog"}}}
            }
        },
        "/api/v1/system/capabilities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Host capabilities",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Capabilities"}}}
            }
        },
        "/api/v1/system/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Queue and worker status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/api/v1/tg/webhook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["telegram"],
                "summary": "Telegram webhook",
                "parameters": [{"description": "event", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.TgWebhookRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TgWebhookResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {"type": "object", "properties": {"code": {"type": "integer", "example": 400}, "error": {"type": "string", "example": "input_path is required"}}},
        "types.CreateJobRequest": {"type": "object", "properties": {
            "input_path": {"type": "string", "example": "/videos/clip.mp4"}, "output_path": {"type": "string"}, "user_id": {"type": "string", "example": "u1"},
            "profile_name": {"type": "string"}, "runner": {"type": "string", "example": "auto"}, "quality_tier": {"type": "string", "example": "high"},
            "detector_model": {"type": "string"}, "restorer_model": {"type": "string"}, "refiner_model": {"type": "string"},
            "duration_hint_seconds": {"type": "integer", "example": 240}, "estimated_credits": {"type": "integer"}, "options": {"type": "object", "additionalProperties": true}}},
        "types.Job": {"type": "object", "properties": {
            "id": {"type": "string"}, "user_id": {"type": "string"}, "input_path": {"type": "string"}, "output_path": {"type": "string"},
            "profile_name": {"type": "string"}, "runner": {"type": "string"}, "quality_tier": {"type": "string"},
            "detector_model": {"type": "string"}, "restorer_model": {"type": "string"}, "refiner_model": {"type": "string"},
            "duration_hint_seconds": {"type": "integer"}, "options": {"type": "object", "additionalProperties": true},
            "status": {"type": "string", "example": "running"}, "stage": {"type": "string"}, "progress": {"type": "number", "example": 0.42},
            "credits_reserved": {"type": "integer"}, "error": {"type": "string"}, "created_at": {"type": "string"}, "updated_at": {"type": "string"},
            "started_at": {"type": "string"}, "finished_at": {"type": "string"}}},
        "types.JobList": {"type": "object", "properties": {"jobs": {"type": "array", "items": {"$ref": "#/definitions/types.Job"}}}},
        "types.Balance": {"type": "object", "properties": {"user_id": {"type": "string"}, "balance": {"type": "integer"}}},
        "types.TopupRequest": {"type": "object", "properties": {"amount": {"type": "integer", "example": 100}, "reason": {"type": "string", "example": "manual_topup"}}},
        "types.TopupResponse": {"type": "object", "properties": {"ok": {"type": "boolean"}, "balance": {"$ref": "#/definitions/types.Balance"}}},
        "types.Transaction": {"type": "object", "properties": {
            "id": {"type": "string"}, "user_id": {"type": "string"}, "kind": {"type": "string", "example": "reserve"}, "amount": {"type": "integer"},
            "consumed": {"type": "integer"}, "reason": {"type": "string"}, "ref_id": {"type": "string"}, "created_at": {"type": "string"}}},
        "types.TransactionList": {"type": "object", "properties": {"transactions": {"type": "array", "items": {"$ref": "#/definitions/types.Transaction"}}}},
        "types.Profile": {"type": "object", "properties": {"name": {"type": "string"}, "settings": {"type": "object", "additionalProperties": true}}},
        "types.ProfileList": {"type": "object", "properties": {"profiles": {"type": "array", "items": {"$ref": "#/definitions/types.Profile"}}}},
        "types.ProfileUpdate": {"type": "object", "properties": {"settings": {"type": "object", "additionalProperties": true}}},
        "types.Capabilities": {"type": "object", "properties": {
            "devices": {"type": "array", "items": {"type": "string"}}, "runners": {"type": "array", "items": {"type": "string"}},
            "runner_available": {"type": "object", "additionalProperties": {"type": "boolean"}},
            "quality_tiers": {"type": "array", "items": {"type": "string"}}, "defaults": {"type": "object", "additionalProperties": true}}},
        "types.ModelCard": {"type": "object", "properties": {
            "id": {"type": "string"}, "role": {"type": "string"}, "family": {"type": "string"}, "objective": {"type": "string"},
            "maturity": {"type": "string"}, "notes": {"type": "string"}}},
        "types.QualityPreset": {"type": "object", "properties": {
            "tier": {"type": "string"}, "detector_model": {"type": "string"}, "restorer_model": {"type": "string"},
            "refiner_model": {"type": "string"}, "notes": {"type": "string"}}},
        "types.Catalog": {"type": "object", "properties": {
            "cards": {"type": "array", "items": {"$ref": "#/definitions/types.ModelCard"}},
            "quality_presets": {"type": "array", "items": {"$ref": "#/definitions/types.QualityPreset"}}}},
        "types.Event": {"type": "object", "properties": {
            "seq": {"type": "integer"}, "time": {"type": "string"}, "name": {"type": "string"}, "job_id": {"type": "string"},
            "fields": {"type": "object", "additionalProperties": true}}},
        "types.EventList": {"type": "object", "properties": {"events": {"type": "array", "items": {"$ref": "#/definitions/types.Event"}}, "last_seq": {"type": "integer"}}},
        "types.StatusResponse": {"type": "object", "properties": {
            "ready": {"type": "boolean"}, "queue_depth": {"type": "integer"}, "inflight_job_id": {"type": "string"},
            "counts": {"type": "object", "additionalProperties": {"type": "integer"}}, "uptime_seconds": {"type": "integer"},
            "runners": {"type": "object", "additionalProperties": {"type": "boolean"}}, "error": {"type": "string"}}},
        "types.TgWebhookRequest": {"type": "object", "properties": {
            "event": {"type": "string", "example": "balance"}, "user_id": {"type": "string", "example": "tg:42"},
            "payload": {"type": "object", "additionalProperties": true}}},
        "types.TgWebhookResponse": {"type": "object", "properties": {
            "ok": {"type": "boolean"}, "event": {"type": "string"}, "message": {"type": "string"}, "balance": {"type": "integer"},
            "transaction_id": {"type": "string"}, "job": {"$ref": "#/definitions/types.Job"}, "error": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "vistora API",
	Description:      "Video-restoration job orchestration with a per-user credit ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
