// Package s3 provides a read-only client for S3-compatible object storage.
//
// It is used to fetch custom service configuration templates referenced as
// s3://bucket/key from the services file.
package s3
