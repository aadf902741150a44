// Package redis implements cache.Store on top of go-redis with a key prefix,
// JSON values and hit/miss counters.
package redis
