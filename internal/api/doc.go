// Package api contains the HTTP handlers for the capture service: enqueueing
// batches of URLs and reporting job progress. The queue engine itself has no
// HTTP surface; it is driven by the worker's trigger loop.
package api
