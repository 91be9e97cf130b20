// Package blobstore abstracts where frozen basis snapshots live.
//
// The local store memory-maps snapshots from disk, the memory store backs
// tests, and the s3 and minio subpackages target object storage. The
// caching store layers an LRU block cache over any of them.
package blobstore
