package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Schedulo API",
        "description": "Constraint-based university timetable scheduling service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Timetable generation and lifecycle"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a timetable preview run for a term",
                "description": "Runs the constraint engine and returns a preview held in memory until saved. Partial runs return 200 with warnings metadata; unsatisfiable runs return 422 with per-session diagnostics.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unsatisfiable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate/batch": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate preview runs for every department in a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchGenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables for a term",
                "parameters": [
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Persist a preview run as a saved timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a saved timetable with its slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete an inactive timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/timetables/{id}/activate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Activate a timetable, deactivating siblings for the same term",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "semester": {"type": "integer"},
                "year": {"type": "integer"},
                "name": {"type": "string"},
                "max_backtrack_steps": {"type": "integer"},
                "time_budget_ms": {"type": "integer"},
                "room_capacity_slack": {"type": "number"}
            },
            "required": ["semester", "year"]
        },
        "BatchGenerateRequest": {
            "type": "object",
            "properties": {
                "semester": {"type": "integer"},
                "year": {"type": "integer"},
                "name": {"type": "string"}
            },
            "required": ["semester", "year"]
        },
        "SaveTimetableRequest": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "activate": {"type": "boolean"}
            },
            "required": ["run_id"]
        },
        "TimetableSlot": {
            "type": "object",
            "properties": {
                "section_id": {"type": "integer"},
                "course_id": {"type": "integer"},
                "faculty_id": {"type": "integer"},
                "room_id": {"type": "integer"},
                "day_of_week": {"type": "integer"},
                "slot_index": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "UnplacedSession": {
            "type": "object",
            "properties": {
                "section_id": {"type": "integer"},
                "course_code": {"type": "string"},
                "occurrence": {"type": "integer"},
                "last_failure_reason": {"type": "string"}
            }
        },
        "RunStats": {
            "type": "object",
            "properties": {
                "placed_count": {"type": "integer"},
                "total_sessions": {"type": "integer"},
                "backtrack_count": {"type": "integer"},
                "elapsed_ms": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
