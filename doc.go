/*
Package jarvis is a graph-based orchestration engine for a personal assistant
agent.

A main agent loops between a decision oracle (usually a chat model) and a
registry of capabilities: tools such as core memory or the calendar, and
sub-agents (nutrition, workout, email) that are themselves agent graphs. Any
graph can suspend to ask the human a question; the thread's frame stack is
checkpointed and the next message on that thread resumes exactly where it
stopped, however deep the question was raised.

# Concept

	decide ──► execute ──► decide ...
	   │           └─────► end (completion, escalation)
	   ├─► limit ─► end (iteration ceiling)
	   └─► end (final answer)

The engine owns the turn log, the iteration policy and the suspension
protocol. The host owns the I/O: a websocket or HTTP server, an MCP server or
a terminal chat loop all drive the same session.Controller.

# Usage

	oracle, err := openai.New(openai.Config{APIKey: key, Prompts: capabilities.Prompts})
	if err != nil {
		log.Fatal(err)
	}

	eng, err := jarvis.New(oracle, jarvis.WithStore(file.New(".jarvis/threads")))
	if err != nil {
		log.Fatal(err)
	}

	reply, err := eng.Handle(ctx, "thread-1", "log 2 eggs for breakfast", nil)
	if err != nil {
		log.Fatal(err)
	}
	if reply.Suspended {
		// reply.Text is a question; the next Handle on thread-1 answers it.
	}

Use the scripted oracle (pkg/adapters/scripted) for tests and offline demos.
*/
package jarvis
