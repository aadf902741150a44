// Package events provides a small in-process publish/subscribe layer.
//
// Services emit an Event after they change a user's data; handlers such as
// cache invalidation react without the emitter knowing about them.
package events
