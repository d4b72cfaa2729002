// Package session provides per-visitor state persistence for hstream.
//
// The Store interface defines the contract for pluggable backends:
//
//	store := session.NewMemoryStore()            // default
//	store := session.NewRedisStore(redisClient)  // shared across servers
//	store := session.NewSQLStore(db)             // any database/sql driver
//	store := session.NewS3Store(s3Client, "bkt") // object storage
//
// Stores deal in opaque serialized bytes. The State type is the persisted
// layout: the ordered component set from the last script run, the
// pending-refresh set, and the rerun flag. Every save carries an eviction
// deadline, so per-visitor storage cannot grow without bound.
package session
