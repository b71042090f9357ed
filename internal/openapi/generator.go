package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	envelopeRef = "#/components/schemas/Envelope"
	sessionRef  = "#/components/schemas/Session"
	adminRef    = "#/components/schemas/Admin"

	portfolioRef     = "#/components/schemas/Portfolio"
	portfolioItemRef = "#/components/schemas/PortfolioRecord"
	portfolioListRef = "#/components/schemas/PortfolioList"
)

// GenerateSpec builds the OpenAPI document for the API served at baseURL.
func GenerateSpec(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "RoleCraft Admin API",
			Description: "Admin authentication with OTP-confirmed password change and reset, master-key emergency reset, and management of the published role-targeted portfolios.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	addSchemas(doc.Components.Schemas)

	doc.Paths = openapi3.NewPaths()
	bearer := &openapi3.SecurityRequirements{{"bearerAuth": {}}}

	doc.Paths.Set("/auth/login", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"session"},
			Summary:     "Log in",
			Description: "Exchange email and password for a session token. Limited per client IP; unknown email and wrong password fail identically.",
			OperationID: "login",
			RequestBody: jsonBody("Admin credentials", objectSchema([]string{"email", "password"}, "email", "password")),
			Responses:   newResponses("200", "Logged in", openapi3.NewSchemaRef(sessionRef, nil), "400", "401", "429"),
		},
	})
	doc.Paths.Set("/auth/logout", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"session"},
			Summary:     "Log out",
			Description: "Acknowledges logout. Tokens are stateless; the client discards its copy.",
			OperationID: "logout",
			Responses:   newResponses("200", "Logged out", openapi3.NewSchemaRef(envelopeRef, nil)),
		},
	})
	doc.Paths.Set("/auth/me", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"session"},
			Summary:     "Current admin",
			OperationID: "me",
			Security:    bearer,
			Responses:   newResponses("200", "The authenticated admin", openapi3.NewSchemaRef(adminRef, nil), "401"),
		},
	})
	doc.Paths.Set("/auth/create-admin", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"bootstrap"},
			Summary:     "Create the first admin",
			Description: "Only succeeds while no admin exists.",
			OperationID: "createAdmin",
			RequestBody: jsonBody("First admin credentials", objectSchema([]string{"email", "password"}, "email", "password")),
			Responses:   newResponses("201", "Admin created and signed in", openapi3.NewSchemaRef(sessionRef, nil), "400", "403"),
		},
	})
	doc.Paths.Set("/auth/change-password/initiate", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"password"},
			Summary:     "Start a password change",
			Description: "Checks the current password and emails a six-digit code valid for 10 minutes.",
			OperationID: "initiatePasswordChange",
			Security:    bearer,
			RequestBody: jsonBody("Current password", objectSchema([]string{"currentPassword"}, "currentPassword")),
			Responses:   newResponses("200", "Code sent", openapi3.NewSchemaRef(envelopeRef, nil), "401", "500"),
		},
	})
	doc.Paths.Set("/auth/change-password/confirm", &openapi3.PathItem{
		Put: &openapi3.Operation{
			Tags:        []string{"password"},
			Summary:     "Finish a password change",
			OperationID: "confirmPasswordChange",
			Security:    bearer,
			RequestBody: jsonBody("Emailed code and new password", objectSchema([]string{"otp", "newPassword"}, "otp", "newPassword")),
			Responses:   newResponses("200", "Password updated", openapi3.NewSchemaRef(envelopeRef, nil), "400", "401"),
		},
	})
	doc.Paths.Set("/auth/forgot-password", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"password"},
			Summary:     "Request a reset code",
			Description: "Always answers with the same message, whether or not the email belongs to an admin.",
			OperationID: "forgotPassword",
			RequestBody: jsonBody("Admin email", objectSchema([]string{"email"}, "email")),
			Responses:   newResponses("200", "Request accepted", openapi3.NewSchemaRef(envelopeRef, nil), "400", "429"),
		},
	})
	doc.Paths.Set("/auth/reset-password", &openapi3.PathItem{
		Put: &openapi3.Operation{
			Tags:        []string{"password"},
			Summary:     "Reset a password with an emailed code",
			OperationID: "resetPassword",
			RequestBody: jsonBody("Email, emailed code and new password", objectSchema([]string{"email", "otp", "newPassword"}, "email", "otp", "newPassword")),
			Responses:   newResponses("200", "Password reset", openapi3.NewSchemaRef(envelopeRef, nil), "400"),
		},
	})
	doc.Paths.Set("/auth/emergency-reset", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"recovery"},
			Summary:     "Reset a password with the server master key",
			Description: "Bypasses OTP and email. email is required when more than one admin exists.",
			OperationID: "emergencyReset",
			RequestBody: jsonBody("Master key and new password", objectSchema([]string{"masterKey", "newPassword"}, "masterKey", "newPassword", "email")),
			Responses:   newResponses("200", "Password reset", openapi3.NewSchemaRef(envelopeRef, nil), "400", "403", "404", "429", "500"),
		},
	})

	addPortfolioPaths(doc.Paths, bearer)

	return doc
}

// addPortfolioPaths registers the /portfolios routes. Everything except the
// public slug lookup needs a session token.
func addPortfolioPaths(paths *openapi3.Paths, bearer *openapi3.SecurityRequirements) {
	idParam := openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewPathParameter("id").
				WithDescription("Portfolio ID.").
				WithSchema(openapi3.NewStringSchema()),
		},
	}
	body := func(description string) *openapi3.RequestBodyRef {
		return jsonBody(description, openapi3.NewSchemaRef(portfolioItemRef, nil))
	}
	one := openapi3.NewSchemaRef(portfolioRef, nil)

	paths.Set("/portfolios", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "List portfolios",
			Description: "All portfolios, enabled or not, newest first.",
			OperationID: "listPortfolios",
			Security:    bearer,
			Responses:   newResponses("200", "Portfolios with their count", openapi3.NewSchemaRef(portfolioListRef, nil), "401"),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Create a portfolio",
			Description: "Slug and job role are required. Theme defaults to dark; new portfolios are enabled.",
			OperationID: "createPortfolio",
			Security:    bearer,
			RequestBody: body("Portfolio"),
			Responses:   newResponses("201", "Portfolio created", one, "400", "401"),
		},
	})
	paths.Set("/portfolios/public/{slug}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: openapi3.NewPathParameter("slug").
					WithDescription("Published slug, matched case-insensitively.").
					WithSchema(openapi3.NewStringSchema()),
			},
		},
		Get: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Public portfolio",
			Description: "Disabled portfolios are reported as not found.",
			OperationID: "getPublicPortfolio",
			Responses:   newResponses("200", "The published portfolio", one, "404"),
		},
	})
	paths.Set("/portfolios/{id}", &openapi3.PathItem{
		Parameters: idParam,
		Get: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Get a portfolio",
			OperationID: "getPortfolio",
			Security:    bearer,
			Responses:   newResponses("200", "The portfolio", one, "401", "404"),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Update a portfolio",
			Description: "Fields absent from the body keep their values.",
			OperationID: "updatePortfolio",
			Security:    bearer,
			RequestBody: body("Fields to change"),
			Responses:   newResponses("200", "Portfolio updated", one, "400", "401", "404"),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Delete a portfolio",
			OperationID: "deletePortfolio",
			Security:    bearer,
			Responses:   newResponses("200", "Portfolio deleted", openapi3.NewSchemaRef(envelopeRef, nil), "401", "404"),
		},
	})
	paths.Set("/portfolios/{id}/toggle", &openapi3.PathItem{
		Parameters: idParam,
		Patch: &openapi3.Operation{
			Tags:        []string{"portfolios"},
			Summary:     "Enable or disable a portfolio",
			OperationID: "togglePortfolio",
			Security:    bearer,
			Responses:   newResponses("200", "Portfolio toggled", one, "401", "404"),
		},
	})
}

// addSchemas registers the response envelope and payload schemas.
func addSchemas(schemas openapi3.Schemas) {
	str := func() *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	}
	timestamp := func() *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
	}

	schemas["Envelope"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"success"},
			Properties: openapi3.Schemas{
				"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"message": str(),
				"count":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
				"data":    &openapi3.SchemaRef{Value: &openapi3.Schema{}},
			},
		},
	}

	schemas["AdminSummary"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"id", "email"},
			Properties: openapi3.Schemas{
				"id":    str(),
				"email": str(),
			},
		},
	}

	schemas["AdminRecord"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"id", "email", "created_at", "updated_at"},
			Properties: openapi3.Schemas{
				"id":            str(),
				"email":         str(),
				"last_login_at": timestamp(),
				"created_at":    timestamp(),
				"updated_at":    timestamp(),
			},
		},
	}

	schemas["Session"] = envelopeWith(&openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"admin", "token"},
			Properties: openapi3.Schemas{
				"admin": openapi3.NewSchemaRef("#/components/schemas/AdminSummary", nil),
				"token": str(),
			},
		},
	})

	schemas["Admin"] = envelopeWith(openapi3.NewSchemaRef("#/components/schemas/AdminRecord", nil))

	// Content sections are free-form objects and arrays; only the top-level
	// attributes are described.
	section := func(typ string) *openapi3.SchemaRef {
		s := &openapi3.Schema{Type: &openapi3.Types{typ}}
		if typ == "array" {
			s.Items = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
		}
		return &openapi3.SchemaRef{Value: s}
	}
	schemas["PortfolioRecord"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":           str(),
				"slug":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Pattern: "^[a-z0-9-]+$"}},
				"jobRole":      str(),
				"theme":        &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Enum: []interface{}{"dark", "light"}}},
				"isEnabled":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"hero":         section("object"),
				"skills":       section("array"),
				"projects":     section("array"),
				"experience":   section("array"),
				"education":    section("array"),
				"certificates": section("array"),
				"contact":      section("object"),
				"resume":       section("object"),
				"createdAt":    timestamp(),
				"updatedAt":    timestamp(),
			},
		},
	}
	schemas["Portfolio"] = envelopeWith(openapi3.NewSchemaRef(portfolioItemRef, nil))
	schemas["PortfolioList"] = envelopeWith(&openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef(portfolioItemRef, nil),
		},
	})
}

// envelopeWith returns the envelope schema with data narrowed to data.
func envelopeWith(data *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			AllOf: openapi3.SchemaRefs{
				openapi3.NewSchemaRef(envelopeRef, nil),
				{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"data": data,
						},
					},
				},
			},
		},
	}
}

// objectSchema returns an object schema of string properties.
func objectSchema(required []string, props ...string) *openapi3.SchemaRef {
	properties := openapi3.Schemas{}
	for _, p := range props {
		properties[p] = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Required:   required,
			Properties: properties,
		},
	}
}

func jsonBody(description string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// errorDescriptions names the failure statuses the API can return.
var errorDescriptions = map[string]string{
	"400": "Invalid input or invalid/expired code",
	"401": "Invalid credentials or token",
	"403": "Forbidden",
	"404": "Admin or portfolio not found",
	"429": "Too many attempts",
	"500": "Server error",
}

// newResponses builds a Responses map with a success response and the listed
// error statuses, all using the envelope schema.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	for _, code := range errorCodes {
		desc := errorDescriptions[code]
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(envelopeRef, nil)),
			},
		})
	}

	return responses
}
