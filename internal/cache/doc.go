// Package cache defines the key-value store the rest of the application
// caches through, the key layout shared by writers and invalidators, and a
// singleflight-guarded cache-aside loader.
package cache
