package model

// Response is the envelope used for every JSON response of the API.
// Data is omitted for message-only replies; Count is only set on lists.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionData is the payload returned by login and admin bootstrap.
type SessionData struct {
	Admin AdminSummary `json:"admin"`
	Token string       `json:"token"`
}
