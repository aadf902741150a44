// Package mocks provides shared test doubles.
//
// Store mocks are built on testify/mock; the JWT service and password
// verifier use function fields with fixed defaults. TaskDB is an in-memory
// task table with real transaction and savepoint semantics, for exercising
// the bulk engine without a database.
//
//	jwt := &mocks.MockJWTService{Claims: mocks.ClaimsFor(domain.Identity{UserID: 1, Role: domain.RoleUser})}
package mocks
