// Package docs is generated by swag from the handler annotations. Regenerate with
// `swag init` after changing them.
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
                "tags": ["health"],
                "summary": "Healthcheck",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Signup a new dealer or sales executive",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/request.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Err"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Err"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login a user",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/request.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Err"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get the authenticated user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}
            }
        },
        "/users/contacts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List chat contacts",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}}}
            }
        },
        "/users/sales-execs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List sales executives in a location",
                "parameters": [{"type": "string", "name": "location", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}}}
            }
        },
        "/users/dealers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List dealers in a location",
                "parameters": [{"type": "string", "name": "location", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}}}
            }
        },
        "/chat/send": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Send a message",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/request.SendMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Err"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Err"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Err"}}
                }
            }
        },
        "/chat/{roomID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Get room history",
                "parameters": [{"type": "string", "name": "roomID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Err"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Err"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Err"}}
                }
            }
        },
        "/rooms/{roomID}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Get room history",
                "parameters": [{"type": "string", "name": "roomID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}}}
                }
            }
        },
        "/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "Open the realtime chat connection",
                "parameters": [{"type": "string", "name": "token", "in": "query"}],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "roomId": {"type": "string"},
                "senderId": {"type": "string"},
                "receiverId": {"type": "string"},
                "message": {"type": "string"},
                "imageUrl": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "location": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "request.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "request.SendMessageRequest": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "senderId": {"type": "string"},
                "receiverId": {"type": "string"},
                "message": {"type": "string"},
                "imageUrl": {"type": "string"}
            }
        },
        "request.SignupRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"},
                "role": {"type": "string", "enum": ["dealer", "sales_exec"]},
                "location": {"type": "string"}
            }
        },
        "response.Err": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "response.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
