package file

import "errors"

var (
	ErrInvalidKey     = errors.New("invalid object key") // Prevents path traversal attacks
	ErrObjectNotFound = errors.New("object not found")

	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToCreateFile      = errors.New("failed to create file")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToReadSource      = errors.New("failed to read source")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToStatPath        = errors.New("failed to stat path")
	ErrIsDirectory             = errors.New("path is a directory")

	// S3-specific errors for proper error classification
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")

	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
)
