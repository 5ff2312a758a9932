// Package cache memoizes dashboard snapshots for the length of one cache
// epoch. Two backends are provided: MemoryCache for a single process and
// RedisCache for instances that share a Redis server.
package cache
