// Package gemini implements the generation interfaces using Google's Gemini
// API: question/answer mining over markdown text and embedding computation
// for semantic search.
package gemini
