// Package agent builds completion clients for a matching run.
//
// Provider implementations live under internal/llmimpl and are only reachable
// through LLMClientFactory, which wraps them in the middleware chain:
//
//	metrics -> request validation -> retry -> empty-response validation -> timeout -> provider
package agent
