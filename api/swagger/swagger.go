package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Mentor Assessment API",
        "description": "Mentor applications, timed qualification tests and reviewer tooling.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Applications", "description": "Public mentor application intake"},
        {"name": "Assessment", "description": "Token-gated timed test"},
        {"name": "Admin", "description": "Reviewer listing, overrides and exports"}
    ],
    "paths": {
        "/mentor-applications/specializations": {
            "get": {
                "tags": ["Applications"],
                "summary": "List accepted specializations",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/mentor-applications/apply": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to become a mentor",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ApplyRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application state forbids reapplying", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Cooldown active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mentor-applications/status/{email}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Check application status",
                "parameters": [{"in": "path", "name": "email", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mentor-applications/verify-token": {
            "post": {
                "tags": ["Assessment"],
                "summary": "Check a test link without using it",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/mentor-applications/start-test": {
            "post": {
                "tags": ["Assessment"],
                "summary": "Start the assessment",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {
                    "200": {"description": "Session opened", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Token already used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Token expired or application withdrawn", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Question bank cannot fill a test", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mentor-applications/resume-test": {
            "post": {
                "tags": ["Assessment"],
                "summary": "Resume a running assessment",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Session expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mentor-applications/submit-test": {
            "post": {
                "tags": ["Assessment"],
                "summary": "Submit answers",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitTestRequest"}}],
                "responses": {"200": {"description": "Result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/mentor-applications": {
            "get": {
                "tags": ["Admin"],
                "summary": "List mentor applications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "description": "Comma separated statuses"},
                    {"in": "query", "name": "specialization", "type": "string"},
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/mentor-applications/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export applications",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "specialization", "type": "string"},
                    {"in": "query", "name": "search", "type": "string"}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/admin/mentor-applications/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get an application with its history",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/mentor-applications/{id}/issue-token": {
            "post": {
                "tags": ["Admin"],
                "summary": "Issue or reissue a test link",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"201": {"description": "Issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/mentor-applications/{id}/reinstate": {
            "post": {
                "tags": ["Admin"],
                "summary": "Return a rejected application to pending",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/mentor-applications/{id}/withdraw": {
            "post": {
                "tags": ["Admin"],
                "summary": "Withdraw an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/test-sessions/{id}/review": {
            "get": {
                "tags": ["Admin"],
                "summary": "Inspect a finished session with answers",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "ApplyRequest": {
            "type": "object",
            "required": ["fullName", "email", "specialization"],
            "properties": {
                "fullName": {"type": "string"},
                "email": {"type": "string"},
                "phoneNumber": {"type": "string"},
                "specialization": {"type": "string"},
                "yearsOfExperience": {"type": "integer"},
                "linkedinUrl": {"type": "string"},
                "bio": {"type": "string"},
                "currentPosition": {"type": "string"},
                "company": {"type": "string"}
            }
        },
        "TokenRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {"token": {"type": "string"}}
        },
        "QuestionAnswer": {
            "type": "object",
            "properties": {
                "questionId": {"type": "integer"},
                "answer": {"type": "string", "enum": ["A", "B", "C", "D"]}
            }
        },
        "SubmitTestRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {
                "token": {"type": "string"},
                "answers": {"type": "array", "items": {"$ref": "#/definitions/QuestionAnswer"}}
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {"reason": {"type": "string"}}
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
                "meta": {"type": "object"}
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
