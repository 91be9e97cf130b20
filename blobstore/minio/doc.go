// Package minio provides MinIO-backed blob storage for basis snapshots.
package minio
