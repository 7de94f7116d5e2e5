package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Vendor Upload Gateway API",
        "description": "Token-scoped vendor document uploads for work orders",
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
        {"name": "UploadRequests", "description": "Staff management of vendor upload links"},
        {"name": "VendorUploads", "description": "Public portal operations authorized by the upload token"}
    ],
    "paths": {
        "/upload-requests": {
            "post": {
                "tags": ["UploadRequests"],
                "summary": "Create vendor upload request",
                "description": "Returns the raw upload secret exactly once.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateUploadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Work order or vendor not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["UploadRequests"],
                "summary": "List upload requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "workOrderId", "type": "string"},
                    {"in": "query", "name": "vendorId", "type": "string"},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/details": {
            "get": {
                "tags": ["UploadRequests"],
                "summary": "Upload request details",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/revoke": {
            "post": {
                "tags": ["UploadRequests"],
                "summary": "Revoke upload request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/status": {
            "get": {
                "tags": ["VendorUploads"],
                "summary": "Vendor upload status",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "t", "type": "string", "description": "Upload token (or X-Upload-Token header)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid, expired or revoked token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/files": {
            "post": {
                "tags": ["VendorUploads"],
                "summary": "Request a signed upload URL",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "t", "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/FileMeta"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Size limit exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Quota or type rejection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/files/{fileId}/finalize": {
            "post": {
                "tags": ["VendorUploads"],
                "summary": "Finalize an uploaded file",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "path", "name": "fileId", "required": true, "type": "string"},
                    {"in": "query", "name": "t", "type": "string"},
                    {"in": "body", "name": "payload", "schema": {"$ref": "#/definitions/FinalizeUploadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "File not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Object not yet in storage", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/upload-requests/{id}/complete": {
            "post": {
                "tags": ["VendorUploads"],
                "summary": "Complete an upload request",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "t", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No files uploaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateUploadRequest": {
            "type": "object",
            "required": ["workOrderId", "vendorId", "email"],
            "properties": {
                "workOrderId": {"type": "string"},
                "vendorId": {"type": "string"},
                "email": {"type": "string"},
                "allowedDocTypes": {"type": "array", "items": {"type": "string"}},
                "ttlHours": {"type": "integer"},
                "maxFiles": {"type": "integer"},
                "maxTotalBytes": {"type": "integer"},
                "message": {"type": "string"},
                "notify": {"type": "boolean"}
            }
        },
        "FileMeta": {
            "type": "object",
            "required": ["docType", "fileName", "mimeType", "sizeBytes"],
            "properties": {
                "docType": {"type": "string"},
                "fileName": {"type": "string"},
                "mimeType": {"type": "string"},
                "sizeBytes": {"type": "integer"}
            }
        },
        "FinalizeUploadRequest": {
            "type": "object",
            "properties": {
                "sha256": {"type": "string"},
                "sizeBytes": {"type": "integer"}
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
                "retryable": {"type": "boolean"}
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
