package types

import "context"

// File is an in-memory upload payload.
type File struct {
	Name        string
	ContentType string // optional; must agree with the type sniffed from Data.
	Data        []byte
}

// UploadOptions carries per-call upload parameters.
type UploadOptions struct {
	Folder string // destination folder inside the media store.
}

// Uploader is the media upload service: file in, URL out. Callers validate
// size and type before calling; implementations still reject violations.
type Uploader interface {
	Upload(ctx context.Context, file File, opts UploadOptions) (string, error)
	UploadMany(ctx context.Context, files []File, opts UploadOptions) ([]string, error)
}
