package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Admissions Ledger API",
        "description": "Admissions lifecycle, fee schedules and payment ledger for cohort programmes",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Engagements", "description": "Application, interview, evaluation and enrollment lifecycle"},
        {"name": "Ledger", "description": "Receipt uploads and fee collector verification"},
        {"name": "Cohorts", "description": "Fee configuration and collection dashboards"}
    ],
    "paths": {
        "/students/{studentId}/engagement": {
            "get": {
                "tags": ["Engagements"],
                "summary": "Latest engagement of a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No engagement history", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements": {
            "get": {
                "tags": ["Engagements"],
                "summary": "List engagements",
                "parameters": [
                    {"name": "cohortId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["applied", "reviewing", "enrolled", "dropped"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Engagements"],
                "summary": "Submit an application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Open engagement already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}": {
            "get": {
                "tags": ["Engagements"],
                "summary": "Get engagement",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}/transitions": {
            "post": {
                "tags": ["Engagements"],
                "summary": "Request a status transition",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK, meta.warnings lists frozen lines", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "MISSING_FEEDBACK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "ENGAGEMENT_LOCKED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}/evaluation": {
            "post": {
                "tags": ["Engagements"],
                "summary": "Advance the litmus evaluation",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EvaluationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}/scholarship": {
            "post": {
                "tags": ["Engagements"],
                "summary": "Award a scholarship slab",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"slabId": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK, meta.warnings lists STALE_AWARD lines", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Evaluation not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}/installments/{installmentId}/receipts": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Upload a payment receipt",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"$ref": "#/parameters/installmentId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"fileUrl": {"type": "string", "format": "uri"}}}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "ALREADY_PAID or INVALID_TRANSITION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engagements/{id}/installments/{installmentId}/verification": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Verify the latest receipt of an installment",
                "parameters": [
                    {"$ref": "#/parameters/engagementId"},
                    {"$ref": "#/parameters/installmentId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyInstallmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK, meta.already_resolved reports a no-op", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "MISSING_REASON", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{cohortId}/fee-config": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "Cohort fee configuration",
                "parameters": [{"$ref": "#/parameters/cohortId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Cohorts"],
                "summary": "Replace cohort fee configuration",
                "parameters": [
                    {"$ref": "#/parameters/cohortId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{cohortId}/fee-schedule/preview": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "Preview a fee schedule",
                "parameters": [
                    {"$ref": "#/parameters/cohortId"},
                    {"name": "slabId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{cohortId}/collections": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "Cohort collection metrics",
                "parameters": [
                    {"$ref": "#/parameters/cohortId"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{cohortId}/collections/export": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "Export cohort collection metrics",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/cohortId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}}
                }
            }
        }
    },
    "parameters": {
        "asOf": {"name": "asOf", "in": "query", "type": "string", "description": "RFC 3339 instant or YYYY-MM-DD; defaults to now"},
        "engagementId": {"name": "id", "in": "path", "required": true, "type": "string"},
        "installmentId": {"name": "installmentId", "in": "path", "required": true, "type": "string"},
        "cohortId": {"name": "cohortId", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "SubmitApplicationRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "cohortId": {"type": "string"},
                "taskSubmissions": {"type": "array", "items": {"$ref": "#/definitions/TaskSubmission"}}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "target": {"type": "string"},
                "feedback": {"type": "string"},
                "interview": {
                    "type": "object",
                    "properties": {
                        "meetingDate": {"type": "string", "example": "2024-03-20"},
                        "startTime": {"type": "string", "example": "2:30 PM"},
                        "endTime": {"type": "string", "example": "3:00 PM"},
                        "timezone": {"type": "string", "example": "Asia/Kolkata"},
                        "meetingUrl": {"type": "string"},
                        "interviewerId": {"type": "string"}
                    }
                }
            }
        },
        "EvaluationRequest": {
            "type": "object",
            "properties": {
                "target": {"type": "string", "enum": ["under review", "completed"]},
                "rubric": {"type": "array", "items": {"$ref": "#/definitions/RubricScore"}},
                "performanceRating": {"type": "integer"},
                "feedback": {"type": "string"},
                "scholarshipRecommendation": {"type": "string"}
            }
        },
        "TaskSubmission": {
            "type": "object",
            "properties": {
                "taskId": {"type": "string"},
                "title": {"type": "string"},
                "link": {"type": "string"},
                "submittedAt": {"type": "string", "format": "date-time"}
            }
        },
        "RubricScore": {
            "type": "object",
            "properties": {
                "taskId": {"type": "string"},
                "criterion": {"type": "string"},
                "earned": {"type": "integer"},
                "possible": {"type": "integer"}
            }
        },
        "VerifyInstallmentRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["paid", "flagged"]},
                "comment": {"type": "string"}
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
