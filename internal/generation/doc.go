// Package generation defines the boundary interfaces for deriving
// structured knowledge from captured pages: question/answer pair mining and
// vector embedding computation. Concrete LLM-backed implementations live in
// internal/platform/gemini.
package generation
