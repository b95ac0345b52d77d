// Package docs is generated by swaggo/swag from the handler annotations; regenerate with `swag init -g cmd/main.go`.
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
        "/jobs/crypto-orders/{currency}": {
            "post": {
                "description": "Nets the pending crypto orders of a base currency and places the net amount with the quoting provider",
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Run crypto order matching",
                "parameters": [
                    {"type": "string", "example": "BTC", "description": "Crypto currency code", "name": "currency", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.JobRunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "currency, provider, market or gateway not found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "remittance not placed", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "gateway offline", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/jobs/remittances": {
            "post": {
                "description": "Nets open fiat remittances and dispatches the remainder to the PSP",
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Run remittance grouping",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.JobRunResponse"}},
                    "404": {"description": "currency not found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/quotations/{base}/{quote}": {
            "get": {
                "description": "Latest cached bid/ask for a pair. Requesting a pair also makes the streaming feed subscribe to it",
                "produces": ["application/json"],
                "tags": ["Quotations"],
                "summary": "Get live quotation",
                "parameters": [
                    {"type": "string", "example": "BTC", "description": "Base currency", "name": "base", "in": "path", "required": true},
                    {"type": "string", "example": "USD", "description": "Quote currency", "name": "quote", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.GetQuotationResponse"}},
                    "404": {"description": "no live quotation", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.GetQuotationResponse": {
            "type": "object",
            "properties": {
                "base": {"type": "string", "example": "BTC"},
                "buy": {"type": "string", "example": "65010.5"},
                "instrument": {"type": "string", "example": "BTCUSD.SPOT"},
                "provider": {"type": "string", "example": "LPDESK"},
                "quote": {"type": "string", "example": "USD"},
                "sell": {"type": "string", "example": "64990.25"},
                "timestamp": {"type": "string", "example": "2026-01-02T15:04:05Z"}
            }
        },
        "handler.JobRunResponse": {
            "type": "object",
            "properties": {
                "exec_id": {"type": "string", "example": "77b5d9f5-0569-47e3-aee2-f659d59fbd97"}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "OTC Settlement API",
	Description:      "Manual job triggers and live quotations of the OTC settlement engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
