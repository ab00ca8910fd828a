/*
Package ports defines the driven ports (interfaces) for the jarvis engine.

These interfaces decouple the orchestration core from external implementations,
allowing the engine to work with various checkpoint backends, decision oracles,
transports and capability backends.

# Key Interfaces

  - CheckpointStore: Persists the frame stack of suspended threads.
  - DistributedLocker: Serializes access to a thread across replicas.
  - Oracle: The reasoning step turning history into invocations or an answer.
  - EnabledSource: The capability enable map, read on every decision cycle.
  - EventSink: Receives outbound session events while a run executes.
*/
package ports
