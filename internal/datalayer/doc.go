// Package datalayer stores avatar blobs on local disk or in MinIO.
package datalayer
