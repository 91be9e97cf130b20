// Package s3 provides S3-backed blob storage for basis snapshots, with an
// optional DynamoDB commit store for atomic manifest pointer updates.
package s3
