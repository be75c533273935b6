// Package docs registers the OpenAPI document served under /swagger when
// SWAGGER_ENABLED is set.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Service banner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/{entity}/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "List records",
                "description": "Filters are entity specific. Text filters match case-insensitive substrings.",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"type": "integer", "name": "skip", "in": "query", "minimum": 0},
                    {"type": "integer", "name": "limit", "in": "query", "minimum": 1},
                    {"type": "string", "name": "sort_by", "in": "query"},
                    {"type": "string", "enum": ["asc", "desc"], "name": "order", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/repo.Page"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Create a record",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Replayed create", "schema": {"type": "object"}},
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Update several records",
                "description": "Each element carries an id plus the fields to change. Unknown ids are skipped.",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "array", "items": {"type": "object"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Delete several records",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "array", "items": {"type": "integer"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.BatchDeleteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/{entity}/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Get a record",
                "parameters": [{"$ref": "#/parameters/entity"}, {"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Update a record",
                "parameters": [
                    {"$ref": "#/parameters/entity"},
                    {"$ref": "#/parameters/id"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Delete a record",
                "parameters": [{"$ref": "#/parameters/entity"}, {"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/companies/{id}/verify": {
            "post": {
                "produces": ["application/json"],
                "tags": ["companies"],
                "summary": "Mark a company as verified",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "parameters": {
        "entity": {
            "type": "string",
            "enum": ["users", "jobs", "companies", "referrals"],
            "name": "entity",
            "in": "path",
            "required": true
        },
        "id": {"type": "integer", "minimum": 1, "name": "id", "in": "path", "required": true}
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "validation_failed"},
                "message": {"type": "string", "example": "job_url is required"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "Job deleted successfully."}}
        },
        "handlers.BatchDeleteResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Multiple jobs deleted successfully."},
                "deleted": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "repo.Page": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "skip": {"type": "integer"},
                "limit": {"type": "integer"},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Referral Tracker API",
	Description:      "CRUD API over users, jobs, companies and referrals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
