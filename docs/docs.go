// Package docs registers the OpenAPI description of the HTTP API with swag.
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
                "summary": "Liveness with model flag",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RootResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Model and checkpoint status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Answer a question",
                "parameters": [
                    {
                        "description": "Question and sampling parameters",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.GenerateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/reload": {
            "post": {
                "produces": ["application/json"],
                "summary": "Reload the fine-tuned model from disk",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReloadResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ReloadResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "Length must be between 50 and 500"},
                "message": {"type": "string"}
            }
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {
                "length": {"type": "integer", "example": 200},
                "prompt": {"type": "string", "example": "How do I make a SQL query with JOIN?"},
                "temperature": {"type": "number", "example": 0.7}
            }
        },
        "types.GenerationParameters": {
            "type": "object",
            "properties": {
                "length": {"type": "integer", "example": 200},
                "temperature": {"type": "number", "example": 0.7}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "parameters": {"$ref": "#/definitions/types.GenerationParameters"},
                "prompt": {"type": "string"},
                "response": {"type": "string"},
                "success": {"type": "boolean", "example": true},
                "timestamp": {"type": "string"}
            }
        },
        "types.ReloadResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string", "example": "Model reloaded successfully"},
                "success": {"type": "boolean", "example": true}
            }
        },
        "types.RootResponse": {
            "type": "object",
            "properties": {
                "model_loaded": {"type": "boolean", "example": true},
                "service": {"type": "string", "example": "LibreScript AI API"},
                "status": {"type": "string", "example": "ok"},
                "timestamp": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "checkpoint_exists": {"type": "boolean"},
                "engine": {"type": "string", "example": "server"},
                "generations": {"type": "integer"},
                "last_error": {"type": "string"},
                "latest_model": {"type": "string", "example": "model-1000"},
                "loads_total": {"type": "integer"},
                "model_loaded": {"type": "boolean"},
                "model_name": {"type": "string", "example": "124M"},
                "run_name": {"type": "string", "example": "librescript_code_model"},
                "service": {"type": "string"},
                "state": {"type": "string", "example": "loaded"},
                "timestamp": {"type": "string"},
                "training_steps": {"type": "integer", "example": 1000},
                "uptime_seconds": {"type": "number"}
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
	Title:            "LibreScript AI API",
	Description:      "Answers programming questions with a fine-tuned GPT-2 model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
