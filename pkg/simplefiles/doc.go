// Package simplefiles provides a multi-user object store: users upload
// folders, files and images into a single-level typed hierarchy, control
// their visibility, and read back stored content or derived thumbnails.
//
// A single Service composes the pluggable collaborators it is built with:
// a Repository (document store for users and object metadata), a Cache
// (session tokens with expiry), a BlobStore (raw payloads and derivatives)
// and a JobQueue (asynchronous thumbnail and welcome jobs). Implementations
// of each live under subpackages (repo/memory, repo/mongo, repo/postgres,
// cache/memory, cache/redis, queue/memory, queue/redis, storage/memory,
// storage/fs, storage/s3).
//
// Ownership and visibility are enforced inside repository lookups through
// ObjectQuery. A private object owned by someone else is reported as
// ErrNotFound, exactly like an object that does not exist.
package simplefiles
