// Package api exposes the HTTP surface of the event platform: request
// decoding and validation, routing concerns, and the translation of
// service results and errors into JSON responses. Handlers stay thin and
// delegate all business rules to the service layer.
package api
