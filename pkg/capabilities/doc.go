// Package capabilities holds the capabilities Jarvis ships with: reflection and
// completion, core memory, calendar management and the nutrition, workout and
// gmail sub-agents, plus Assemble, which wires them into the main agent graph.
//
// Capabilities reach their backends through the ports package, so every
// backend can be swapped for an in-memory one in tests.
package capabilities
