package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Therapy Center Scheduling API",
        "description": "Teacher schedules and therapy session booking with conflict detection.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Schedules", "description": "Per-day working schedules of teachers"},
        {"name": "Therapy", "description": "Therapy session booking"},
        {"name": "Observability", "description": "Booking and cache counters"}
    ],
    "paths": {
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Create schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "DUPLICATE_SCHEDULE or OVERLAPPING_SLOTS", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Schedules"],
                "summary": "Update schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/teachers/{id}/availability": {
            "get": {
                "tags": ["Therapy"],
                "summary": "Free windows of a therapist's day",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/therapy": {
            "get": {
                "tags": ["Therapy"],
                "summary": "List therapy sessions",
                "parameters": [
                    {"name": "therapist_id", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["scheduled", "completed", "cancelled", "no_show"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Therapy"],
                "summary": "Book therapy session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing fields or inactive therapist/student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "THERAPIST_DOUBLE_BOOKED, THERAPIST_ON_HOLIDAY or NO_AVAILABLE_SLOT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Therapist calendar busy, retry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/therapy/upcoming": {
            "get": {
                "tags": ["Therapy"],
                "summary": "List a therapist's upcoming sessions",
                "parameters": [
                    {"name": "therapist_id", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/therapy/export": {
            "get": {
                "tags": ["Therapy"],
                "summary": "Export therapy sessions",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "therapist_id", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/therapy/{id}": {
            "get": {
                "tags": ["Therapy"],
                "summary": "Get therapy session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Therapy"],
                "summary": "Update therapy session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Therapy"],
                "summary": "Cancel therapy session",
                "description": "The session is kept with status cancelled.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Booking and cache counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimeSlot": {
            "type": "object",
            "required": ["start_time", "end_time", "activity"],
            "properties": {
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"},
                "activity": {"type": "string", "enum": ["class", "therapy", "break", "meeting", "other"]},
                "related_to": {
                    "type": "object",
                    "properties": {
                        "kind": {"type": "string", "enum": ["Class", "TherapySession"]},
                        "id": {"type": "string"}
                    }
                },
                "notes": {"type": "string"}
            }
        },
        "CreateScheduleRequest": {
            "type": "object",
            "required": ["teacher_id", "date"],
            "properties": {
                "teacher_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlot"}},
                "is_holiday": {"type": "boolean"},
                "holiday_reason": {"type": "string"}
            }
        },
        "UpdateScheduleRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlot"}},
                "is_holiday": {"type": "boolean"},
                "holiday_reason": {"type": "string"}
            }
        },
        "SessionNotes": {
            "type": "object",
            "properties": {
                "before": {"type": "string"},
                "during": {"type": "string"},
                "follow_up": {"type": "string"}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["student_id", "therapist_id", "date_time", "duration"],
            "properties": {
                "student_id": {"type": "string"},
                "therapist_id": {"type": "string"},
                "date_time": {"type": "string", "format": "date-time"},
                "duration": {"type": "integer", "description": "Minutes", "minimum": 1, "maximum": 1440},
                "type": {"type": "string"},
                "notes": {"$ref": "#/definitions/SessionNotes"}
            }
        },
        "UpdateSessionRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "therapist_id": {"type": "string"},
                "date_time": {"type": "string", "format": "date-time"},
                "duration": {"type": "integer", "minimum": 1, "maximum": 1440},
                "type": {"type": "string"},
                "status": {"type": "string", "enum": ["scheduled", "completed", "cancelled", "no_show"]},
                "notes": {"$ref": "#/definitions/SessionNotes"},
                "progress": {
                    "type": "object",
                    "properties": {
                        "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                        "comments": {"type": "string"}
                    }
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
