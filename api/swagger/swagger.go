package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Matrícula API",
        "description": "Seat allocation and enrollment workflow service for Colegio Experimental UNS",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Vacancies", "description": "Seat bucket ledger and public availability"},
        {"name": "Enrollments", "description": "Intake, review workflow and certificates"},
        {"name": "Students", "description": "Student registry"},
        {"name": "Ratifications", "description": "Yearly ratification campaign"},
        {"name": "Notifications", "description": "Dispatch log and transport diagnostics"},
        {"name": "System", "description": "Operational metrics"}
    ],
    "paths": {
        "/vacancies": {
            "get": {
                "tags": ["Vacancies"],
                "summary": "List vacancies for an academic year",
                "parameters": [
                    {"name": "year", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Vacancies"],
                "summary": "Create or resize a seat bucket",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfigureSeatsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Shrink below occupancy refused"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollment records",
                "parameters": [
                    {"name": "year", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Submit a public enrollment application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No seats available"}
                }
            }
        },
        "/enrollments/manual": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Record a staff-verified enrollment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get an enrollment record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/enrollments/{id}/state": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Move an enrollment through the review workflow",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/enrollments/{id}/certificate": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Download the enrollment certificate PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "409": {"description": "Enrollment not completed"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Deactivate a student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/ratifications": {
            "post": {
                "tags": ["Ratifications"],
                "summary": "Send the ratification reminder to every active student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RatifyAllRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ratifications/{id}": {
            "post": {
                "tags": ["Ratifications"],
                "summary": "Send the ratification reminder to a single student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RatifyAllRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No contact on file"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notification dispatch log entries",
                "parameters": [
                    {"name": "recipient", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "channel", "in": "query", "type": "string"},
                    {"name": "outcome", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/diagnostics": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Probe notification transports",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregate operational counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ConfigureSeatsRequest": {
            "type": "object",
            "required": ["academic_year", "level", "grade", "shift"],
            "properties": {
                "academic_year": {"type": "string"},
                "level": {"type": "string", "enum": ["Inicial", "Primaria", "Secundaria"]},
                "grade": {"type": "string"},
                "shift": {"type": "string", "enum": ["Mañana", "Tarde"]},
                "total_seats": {"type": "integer"}
            }
        },
        "SubmitEnrollmentRequest": {
            "type": "object",
            "required": ["academic_year", "level", "grade", "shift", "student_national_id", "student_full_name", "student_birth_date", "guardian"],
            "properties": {
                "academic_year": {"type": "string"},
                "level": {"type": "string"},
                "grade": {"type": "string"},
                "shift": {"type": "string"},
                "student_national_id": {"type": "string"},
                "student_full_name": {"type": "string"},
                "student_birth_date": {"type": "string", "format": "date"},
                "guardian": {"$ref": "#/definitions/GuardianInput"},
                "voucher_ref": {"type": "string"}
            }
        },
        "ManualEnrollmentRequest": {
            "type": "object",
            "required": ["student_id", "academic_year", "level", "grade", "shift"],
            "properties": {
                "student_id": {"type": "string"},
                "academic_year": {"type": "string"},
                "level": {"type": "string"},
                "grade": {"type": "string"},
                "shift": {"type": "string"},
                "voucher_ref": {"type": "string"}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["state"],
            "properties": {
                "state": {"type": "string", "enum": ["PENDING", "IN_REVIEW", "COMPLETED", "REJECTED"]},
                "documents_complete": {"type": "boolean"}
            }
        },
        "GuardianInput": {
            "type": "object",
            "required": ["national_id", "full_name"],
            "properties": {
                "national_id": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "relationship": {"type": "string"}
            }
        },
        "CreateStudentRequest": {
            "type": "object",
            "required": ["national_id", "full_name", "birth_date", "level", "grade", "shift"],
            "properties": {
                "national_id": {"type": "string"},
                "full_name": {"type": "string"},
                "birth_date": {"type": "string", "format": "date"},
                "level": {"type": "string"},
                "grade": {"type": "string"},
                "shift": {"type": "string"},
                "guardian": {"$ref": "#/definitions/GuardianInput"}
            }
        },
        "UpdateStudentRequest": {
            "type": "object",
            "required": ["full_name", "level", "grade", "shift"],
            "properties": {
                "full_name": {"type": "string"},
                "level": {"type": "string"},
                "grade": {"type": "string"},
                "shift": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "RatifyAllRequest": {
            "type": "object",
            "required": ["academic_year"],
            "properties": {
                "academic_year": {"type": "string"}
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
                "status": {"type": "integer"}
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
