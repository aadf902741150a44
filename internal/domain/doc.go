// Package domain contains the core business entities of the task API: users
// and the tasks they own. Entities validate themselves; persistence and
// delivery concerns live elsewhere.
package domain
