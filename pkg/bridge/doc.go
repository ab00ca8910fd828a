// Package bridge decouples the engine's pace from a client's transport.
//
// Each live session owns an unbounded Queue. The engine pushes progress and
// closing events without ever blocking; a drain goroutine forwards them to
// the Transport at its own pace. Stopping a session ends only the drain: a run
// already in flight keeps going and its remaining events are discarded.
package bridge
