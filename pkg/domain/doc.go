/*
Package domain contains the core models of the jarvis orchestration engine.

It defines the conversation log, the execution state that flows through a graph,
the checkpoint persisted on suspension and the tagged capability result. This
package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Turn: One entry of the append-only conversation log (User, Assistant, ToolResult, System).
  - ExecutionState: The state owned by one in-flight run, merged through field reducers.
  - Update: A partial state returned by a node (turns append, scalars replace).
  - Checkpoint: The persisted frame stack of a suspended thread.
  - Result: What a capability returns (Ok, Delegate or Error).
*/
package domain
