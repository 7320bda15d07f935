// Package docs serves the OpenAPI description of the v1 API.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/items": {
            "get": {"tags": ["items"], "summary": "List catalog items", "parameters": [
                {"name": "q", "in": "query", "type": "string"},
                {"name": "category", "in": "query", "type": "string"},
                {"name": "status", "in": "query", "type": "string"},
                {"name": "limit", "in": "query", "type": "integer"},
                {"name": "offset", "in": "query", "type": "integer"}
            ], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["items"], "summary": "Create an item (admin)", "parameters": [
                {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateItem"}}
            ], "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/items/low-stock": {
            "get": {"tags": ["items"], "summary": "Items at or below their threshold (admin)", "responses": {"200": {"description": "OK"}}}
        },
        "/items/{id}": {
            "get": {"tags": ["items"], "summary": "Get an item", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/responses/Error"}}},
            "put": {"tags": ["items"], "summary": "Update an item (admin)", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["items"], "summary": "Delete an item without active reservations (admin)", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "No Content"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/requests": {
            "get": {"tags": ["requests"], "summary": "List requests; teachers see their own", "parameters": [
                {"name": "request_type", "in": "query", "type": "string", "enum": ["item", "custom", "report"]},
                {"name": "status", "in": "query", "type": "string", "description": "comma separated"},
                {"name": "priority", "in": "query", "type": "string", "enum": ["normal", "urgent"]},
                {"name": "from", "in": "query", "type": "string", "format": "date"},
                {"name": "to", "in": "query", "type": "string", "format": "date"}
            ], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["requests"], "summary": "Submit an item, custom or report request (teacher)", "parameters": [
                {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
            ], "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/requests/{id}": {
            "get": {"tags": ["requests"], "summary": "Get a request", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["requests"], "summary": "Delete a request and release its stock (admin)", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/requests/{id}/history": {
            "get": {"tags": ["requests"], "summary": "Status transitions of a request", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}
        },
        "/requests/{id}/approve": {"post": {"tags": ["lifecycle"], "summary": "Approve and reserve stock", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}},
        "/requests/{id}/assign": {"post": {"tags": ["lifecycle"], "summary": "Hand over approved stock with a due date", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}},
        "/requests/{id}/approve-assign": {"post": {"tags": ["lifecycle"], "summary": "Approve and assign in one step", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}},
        "/requests/{id}/reject": {"post": {"tags": ["lifecycle"], "summary": "Reject and release any held stock", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}},
        "/requests/{id}/respond": {"post": {"tags": ["lifecycle"], "summary": "Move a custom request forward", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}},
        "/requests/{id}/return": {"post": {"tags": ["lifecycle"], "summary": "Return an assigned item (owner)", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}},
        "/requests/{id}/inspect": {"post": {"tags": ["lifecycle"], "summary": "Record the return inspection", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}},
        "/requests/{id}/adjust": {"post": {"tags": ["lifecycle"], "summary": "Change the assigned quantity", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}},
        "/requests/{id}/report-status": {"post": {"tags": ["lifecycle"], "summary": "Move an issue report forward", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"description": "OK"}}}},
        "/notifications": {
            "get": {"tags": ["notifications"], "summary": "Derived notification feed", "parameters": [
                {"name": "feed", "in": "query", "type": "string", "enum": ["compact", "full"]},
                {"name": "inventory", "in": "query", "type": "boolean"},
                {"name": "requests", "in": "query", "type": "boolean"}
            ], "responses": {"200": {"description": "OK"}}}
        },
        "/notifications/read": {"post": {"tags": ["notifications"], "summary": "Mark notifications read", "responses": {"200": {"description": "OK"}}}},
        "/budget": {
            "get": {"tags": ["budget"], "summary": "Current budget snapshot (admin)", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["budget"], "summary": "Set the total budget (admin)", "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/budget/recalculate": {"post": {"tags": ["budget"], "summary": "Recompute spending (admin)", "responses": {"200": {"description": "OK"}}}},
        "/budget/reset": {"post": {"tags": ["budget"], "summary": "Start a new spending period (admin)", "responses": {"200": {"description": "OK"}}}},
        "/budget/purchases": {
            "get": {"tags": ["budget"], "summary": "Purchases in the current period (admin)", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["budget"], "summary": "Record a purchase (admin)", "responses": {"201": {"description": "Created"}}}
        },
        "/uploads": {"post": {"tags": ["uploads"], "summary": "Upload a request photo", "consumes": ["multipart/form-data"], "parameters": [
            {"name": "file", "in": "formData", "type": "file", "required": true}
        ], "responses": {"201": {"description": "Created"}}}},
        "/uploads/photos/{name}": {"get": {"tags": ["uploads"], "summary": "Presigned photo URL", "parameters": [
            {"name": "name", "in": "path", "type": "string", "required": true}
        ], "responses": {"200": {"description": "OK"}}}},
        "/snapshot": {"get": {"tags": ["export"], "summary": "Read-only export of requests, items and budget (admin)", "parameters": [
            {"name": "from", "in": "query", "type": "string", "format": "date"},
            {"name": "to", "in": "query", "type": "string", "format": "date"}
        ], "responses": {"200": {"description": "OK"}}}}
    },
    "parameters": {
        "ID": {"name": "id", "in": "path", "type": "string", "format": "uuid", "required": true}
    },
    "responses": {
        "Error": {"description": "Error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"error": {"type": "object", "properties": {
            "code": {"type": "string"}, "message": {"type": "string"}, "details": {"type": "object"}
        }}}},
        "CreateItem": {"type": "object", "required": ["name", "quantity_total"], "properties": {
            "name": {"type": "string"}, "category": {"type": "string"},
            "quantity_total": {"type": "integer"}, "low_stock_threshold": {"type": "integer"}, "status": {"type": "string"}
        }},
        "SubmitRequest": {"type": "object", "required": ["request_type"], "properties": {
            "request_type": {"type": "string", "enum": ["item", "custom", "report"]},
            "location": {"type": "string"}, "priority": {"type": "string"},
            "item_id": {"type": "string", "format": "uuid"}, "quantity": {"type": "integer"}, "notes": {"type": "string"},
            "item_name": {"type": "string"}, "description": {"type": "string"}, "estimated_cost": {"type": "number"},
            "photo_ref": {"type": "string"}, "report_kind": {"type": "string"}, "related_request_id": {"type": "string", "format": "uuid"}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "School Props API",
	Description:      "Loans, purchase requests, issue reports and budget for school property.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
