package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Timetable allocation: greedy and optimizer scheduling, proposals, versioned timetables and exports.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Timetables",
            "description": "Timetable generation, proposals and saved versions"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is unavailable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/timetables": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "List saved timetables",
                "parameters": [
                    {
                        "name": "term",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/catalog": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "List catalog slots with overlap groups and intersecting groups",
                "description": "Public. A valid bearer token sets meta.can_override for the caller's role.",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Generate a timetable proposal",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "500": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/proposals/{id}": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Get a stored proposal",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Proposal ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/proposals/{id}/overrides": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Apply overrides to a proposal and solve again",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Proposal ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ReplanRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/proposals/{id}/overrides/last": {
            "delete": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Undo the most recent override batch and solve again",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Proposal ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/save": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Save a proposal as a timetable version",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SaveTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/optimize": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Queue a background optimizer run",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/jobs/{id}": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Poll a background optimizer run",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Job ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/{id}": {
            "delete": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Delete a draft timetable",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Timetable ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/{id}/placements": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Get placements of a saved timetable",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Timetable ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/{id}/publish": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Publish a timetable for its term",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Timetable ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Published"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/timetables/{id}/export": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Download a saved timetable",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Timetable ID"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        }
    },
    "definitions": {
        "CourseComponent": {
            "type": "object",
            "required": [
                "id",
                "kind"
            ],
            "properties": {
                "id": {
                    "type": "string"
                },
                "kind": {
                    "type": "string",
                    "description": "L, T, P or a raw label such as LEC1, Tutorial, Lab"
                },
                "duration_hours": {
                    "type": "number"
                },
                "student_group": {
                    "type": "string"
                },
                "faculty_id": {
                    "type": "string"
                },
                "faculty_name": {
                    "type": "string"
                },
                "preferred_room_id": {
                    "type": "string"
                },
                "seats_needed": {
                    "type": "integer"
                },
                "elective": {
                    "type": "boolean"
                }
            }
        },
        "Room": {
            "type": "object",
            "required": [
                "id"
            ],
            "properties": {
                "id": {
                    "type": "string"
                },
                "capacity": {
                    "type": "integer"
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "Classroom",
                        "Lab"
                    ]
                }
            }
        },
        "Faculty": {
            "type": "object",
            "required": [
                "id"
            ],
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "max_teaching_days": {
                    "type": "integer"
                },
                "allow_back_to_back": {
                    "type": "boolean"
                }
            }
        },
        "Override": {
            "type": "object",
            "required": [
                "course_id",
                "component",
                "day",
                "time"
            ],
            "properties": {
                "course_id": {
                    "type": "string"
                },
                "component": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                },
                "time": {
                    "type": "string",
                    "example": "08:00-08:55"
                },
                "force": {
                    "type": "boolean"
                }
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": [
                "term",
                "courses"
            ],
            "properties": {
                "term": {
                    "type": "string"
                },
                "strategy": {
                    "type": "string",
                    "enum": [
                        "greedy",
                        "optimizer"
                    ]
                },
                "courses": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/CourseComponent"
                    }
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Room"
                    }
                },
                "faculty": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Faculty"
                    }
                },
                "groups": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "overrides": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Override"
                    }
                }
            }
        },
        "ReplanRequest": {
            "type": "object",
            "required": [
                "overrides"
            ],
            "properties": {
                "overrides": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Override"
                    }
                },
                "strategy": {
                    "type": "string",
                    "enum": [
                        "greedy",
                        "optimizer"
                    ]
                }
            }
        },
        "SaveTimetableRequest": {
            "type": "object",
            "required": [
                "proposal_id"
            ],
            "properties": {
                "proposal_id": {
                    "type": "string"
                },
                "publish": {
                    "type": "boolean"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
