package domain

import "errors"

// ErrCheckpointNotFound is returned when a thread id has no checkpoint in the store.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrNoPendingSuspension is returned when a resume targets a thread that is not suspended.
var ErrNoPendingSuspension = errors.New("no pending suspension")

// ErrThreadBusy is returned when another caller is already running the same thread.
var ErrThreadBusy = errors.New("thread is busy")

// ErrCapabilityNotFound is returned when an invocation names an unknown capability.
var ErrCapabilityNotFound = errors.New("capability not found")

// ErrCapabilityDisabled is returned when an invocation names a disabled capability.
var ErrCapabilityDisabled = errors.New("capability disabled")

// ErrMemoryNotFound is returned when a memory reference matches none of the user's memories.
var ErrMemoryNotFound = errors.New("memory not found")

// ErrAmbiguousMemory is returned when a short memory id matches more than one memory.
var ErrAmbiguousMemory = errors.New("memory id is ambiguous")
