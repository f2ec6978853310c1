package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"regexp"
	"time"

	"github.com/formbridge/formbridge/constants"
	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/common"
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// ValidateFilename enforces the upload filename policy: a whitelisted
// extension, at most 255 characters, and only [A-Za-z0-9_.-]. Runs before
// any hashing.
func ValidateFilename(name string) error {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return common.NewAppError("UPLOAD_FILENAME",
			fmt.Sprintf("extension %q is not allowed", ext), common.ErrInvalidFilename)
	}
	if len(name) > constants.MaxFilenameLength {
		return common.NewAppError("UPLOAD_FILENAME",
			fmt.Sprintf("filename exceeds %d characters", constants.MaxFilenameLength), common.ErrInvalidFilename)
	}
	if !filenamePattern.MatchString(name) {
		return common.NewAppError("UPLOAD_FILENAME",
			fmt.Sprintf("filename %q contains invalid characters", name), common.ErrInvalidFilename)
	}
	return nil
}

// ComputeHash returns the SHA-256 hex digest of the file content.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Deduper prevents redundant storage of identical file bytes across repeated
// uploads. The cache maps content hash -> stored name; entries expire by TTL
// only. Two concurrent uploads of identical content race benignly: at worst
// the same bytes are stored twice under the same key.
type Deduper struct {
	cache  cache.Cache
	store  blobstore.Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewDeduper(c cache.Cache, s blobstore.Store, ttl time.Duration, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduper{cache: c, store: s, ttl: ttl, logger: logger}
}

// PutResult reports where an upload ended up. Hash is the SHA-256 hex digest
// already computed during deduplication, so callers recording it do not hash
// the content a second time.
type PutResult struct {
	StoredName   string
	Hash         string
	Deduplicated bool
}

// PutIfAbsent validates the filename, hashes the content, and either returns
// the name a previous identical upload was stored under, or uploads the file
// and records the hash.
func (d *Deduper) PutIfAbsent(ctx context.Context, name string, content []byte) (PutResult, error) {
	if err := ValidateFilename(name); err != nil {
		return PutResult{}, err
	}
	if len(content) == 0 {
		return PutResult{}, common.NewAppError("UPLOAD_EMPTY", "file content is empty", common.ErrInvalidInput)
	}

	digest := ComputeHash(content)

	stored, hit, err := d.cache.Get(ctx, digest)
	if err != nil {
		return PutResult{}, err
	}
	if hit {
		d.logger.Info("upload.dedup.hit", "hash", digest, "stored_name", stored, "requested_name", name)
		return PutResult{StoredName: stored, Hash: digest, Deduplicated: true}, nil
	}

	url, err := d.store.Put(ctx, blobstore.RoleForms, name, content, contentTypeFor(name))
	if err != nil {
		return PutResult{}, err
	}
	d.logger.Info("upload.stored", "hash", digest, "name", name, "url", url)

	if err := d.cache.SetWithTTL(ctx, digest, name, d.ttl); err != nil {
		// The upload itself succeeded; a cache write failure only costs a
		// future dedup opportunity.
		d.logger.Warn("upload.dedup.cache_write_failed", "hash", digest, "error", err)
	}
	return PutResult{StoredName: name, Hash: digest}, nil
}

func contentTypeFor(name string) string {
	ext := filepath.Ext(name)
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	switch constants.NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
