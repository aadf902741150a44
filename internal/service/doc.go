// Package service contains the application use cases that sit between the
// HTTP layer and the stores: user registration and authentication, and
// single-task CRUD with cached reads.
//
// Services receive their stores through constructor injection and apply
// transactional boundaries with store.RunInTransaction. Expected failures
// surface as sentinel errors (here and in internal/store); anything else is
// wrapped in a ServiceError so the API layer can classify it with errors.Is
// and errors.As.
//
// TaskTransactor adapts the task store to the bulk engine's transaction
// interface.
package service
