package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Portal API",
        "description": "Multi-tenant online examination platform with subscription-gated exam access",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and account"},
        {"name": "Colleges", "description": "Tenant management"},
        {"name": "Taxonomy", "description": "Subjects and courses"},
        {"name": "Batches", "description": "Student cohorts"},
        {"name": "Plans", "description": "Subscription plans"},
        {"name": "Assignments", "description": "Batch-plan and exam-batch links"},
        {"name": "Students", "description": "Roster management and bulk import"},
        {"name": "Exams", "description": "Exams and question banks"},
        {"name": "Subscriptions", "description": "Purchase flow and registry"},
        {"name": "Entitlements", "description": "Exam access resolution"},
        {"name": "Attempts", "description": "Exam taking and results"},
        {"name": "Results", "description": "Result reporting"},
        {"name": "Incidents", "description": "Proctoring incident reports"},
        {"name": "Dashboard", "description": "Landing-page summaries"},
        {"name": "Certificates", "description": "Pass certificate issuance"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue a token pair",
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate the refresh token",
                "responses": {
                    "200": {"description": "Token pair"}
                }
            }
        },
        "/admin/colleges": {
            "get": {
                "tags": ["Colleges"],
                "summary": "List colleges",
                "responses": {
                    "200": {"description": "College list", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Colleges"],
                "summary": "Create a college",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/admin/plans": {
            "get": {
                "tags": ["Plans"],
                "summary": "List subscription plans",
                "responses": {
                    "200": {"description": "Plan list"}
                }
            },
            "post": {
                "tags": ["Plans"],
                "summary": "Create a plan",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/admin/batch-assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a plan to a batch",
                "responses": {
                    "201": {"description": "Created"},
                    "412": {"description": "Batch or plan inactive"}
                }
            }
        },
        "/admin/students/import": {
            "post": {
                "tags": ["Students"],
                "summary": "Bulk-import students from a spreadsheet",
                "responses": {
                    "200": {"description": "Import report"}
                }
            }
        },
        "/admin/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams",
                "responses": {
                    "200": {"description": "Exam list"}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Create an exam",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/student/subscriptions/purchase": {
            "post": {
                "tags": ["Subscriptions"],
                "summary": "Begin a subscription purchase",
                "responses": {
                    "201": {"description": "Gateway order"}
                }
            }
        },
        "/student/subscriptions/confirm": {
            "post": {
                "tags": ["Subscriptions"],
                "summary": "Confirm a purchase and activate the subscription",
                "responses": {
                    "200": {"description": "Active subscription"},
                    "402": {"description": "Signature verification failed"}
                }
            }
        },
        "/student/exams/{examId}/access": {
            "get": {
                "tags": ["Entitlements"],
                "summary": "Resolve exam access for the caller",
                "responses": {
                    "200": {"description": "Access decision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/student/exams/{examId}/attempt": {
            "post": {
                "tags": ["Attempts"],
                "summary": "Start an attempt",
                "responses": {
                    "200": {"description": "Question paper without answer keys"},
                    "403": {"description": "Access denied"}
                }
            }
        },
        "/student/attempts": {
            "post": {
                "tags": ["Attempts"],
                "summary": "Submit an attempt for grading",
                "responses": {
                    "201": {"description": "Graded result"}
                }
            }
        },
        "/student/results/{id}/certificate": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Request a certificate for a passed result",
                "responses": {
                    "201": {"description": "Pending certificate"},
                    "412": {"description": "Result not passed"}
                }
            }
        },
        "/certificates/download": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a certificate PDF by signed token",
                "responses": {
                    "200": {"description": "PDF file"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
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
