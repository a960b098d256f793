// Package events provides types and a broadcaster for pipeline notifications.
//
// The queue engine publishes transient events as items move through the
// pipeline (processing started, item ready, processing failed). Delivery is
// best-effort: publishing never blocks and never fails the pipeline, and a
// broadcaster with zero subscribers simply drops events. This keeps observers
// such as UI surfaces loosely coupled from the engine.
package events
