package artifact

import "errors"

var (
	ErrEmptyContent  = errors.New("artifact content is empty")
	ErrWrite         = errors.New("artifact write failed")
	ErrNotFound      = errors.New("artifact not found")
	ErrPathTraversal = errors.New("artifact path escapes storage directory")
)
