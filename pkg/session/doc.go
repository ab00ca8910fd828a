/*
Package session implements thread management and the suspend/resume controller.

A thread is a conversation keyed by a client-chosen id. The Manager serializes
access to a thread's checkpoint across goroutines and, with a distributed
locker, across replicas. The Controller decides for each inbound message
whether it starts a fresh run or answers a pending question, and persists the
outcome so a suspended run can resume on another task or after a restart.
*/
package session
