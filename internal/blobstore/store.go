package blobstore

import "context"

// BucketRole names the two buckets the service writes to.
type BucketRole string

const (
	RoleForms   BucketRole = "forms"
	RoleSchemas BucketRole = "schemas"
)

// Store is the blob persistence boundary: form documents and schema
// documents, addressed by role and key.
type Store interface {
	Put(ctx context.Context, role BucketRole, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, role BucketRole, key string) ([]byte, error)
}
