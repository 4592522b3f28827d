// Package api contains the HTTP handlers for the try-on service. Handlers
// decode and validate requests, call into the service layer, and map service
// errors to sanitized HTTP responses.
package api
