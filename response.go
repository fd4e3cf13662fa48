package main

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// APIResponse sets the standard headers and writes JSON bodies
type APIResponse struct {
	w         http.ResponseWriter
	r         *http.Request
	provider  string
	quotaUsed int64
	hasQuota  bool
}

// Respond creates a response helper for the request
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetProvider sets the X-Provider header value
func (a *APIResponse) SetProvider(provider string) *APIResponse {
	a.provider = provider
	return a
}

// SetQuotaUsed sets the X-Quota-Used header value
func (a *APIResponse) SetQuotaUsed(units int64) *APIResponse {
	a.quotaUsed = units
	a.hasQuota = true
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.provider != "" {
		a.w.Header().Set("X-Provider", a.provider)
	}
	if a.hasQuota {
		a.w.Header().Set("X-Quota-Used", strconv.FormatInt(a.quotaUsed, 10))
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes an error body
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}
