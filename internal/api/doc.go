// Package api holds the HTTP handlers: authentication, single-task CRUD and
// the bulk operation endpoints. Handlers decode and validate requests,
// delegate to the service layer or the bulk engine, and translate errors to
// status codes through HandleAPIError.
package api
