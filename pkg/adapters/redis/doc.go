// Package redis provides Redis-backed thread checkpoints, distributed thread
// locks, journals and core memory, for deployments running several replicas.
package redis
