/*
Package graph is the execution graph of the jarvis engine.

A Graph is compiled once from named nodes, static or conditional edges and an
entry node, and is immutable afterwards. Running it invokes the current node,
merges the returned Update into the ExecutionState, evaluates the outgoing edge
against the merged state and advances, until a node suspends or finishes, or an
edge selects End.

# Suspension

Nodes never block waiting for a human. They return Suspend(question, update)
and the graph hands back a stack of Frames: this graph's position and state,
followed by the frames of any nested graph that suspended inside a capability.
Resume pops the first frame, re-enters that exact node and passes the resume
value (and the remaining frames) to it.

	g, err := graph.NewBuilder("greeter").
		AddNode("ask", askNode).
		AddEdge("ask", graph.End).
		SetEntry("ask").
		Compile()
*/
package graph
