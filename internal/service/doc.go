// Package service implements the producer side of the pipeline: accepting
// batches of URLs, creating the items and job records the queue engine
// consumes, and reporting job progress.
package service
