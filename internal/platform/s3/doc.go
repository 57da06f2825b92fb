// Package s3 stores run records in an S3 bucket.
//
// An archive location is written as s3://bucket/prefix. Records of a cluster
// are kept under prefix/cluster/<run id>.json so every apply of a stack can
// be looked up later by its run id.
package s3
