// Package queue implements the background processing engine that advances
// captured items through the pipeline. It provides the orchestrator run loop
// with its single-run guard, the parallel fetch phase, the sequential content
// processing phase (markdown, QA pairs, embeddings), retry handling with
// exponential backoff, startup crash recovery, and best-effort event
// publication. The engine is crash-resilient: every processing stage checks
// existing output before recomputing, so re-running a partially completed
// item after an unclean shutdown is safe.
package queue
