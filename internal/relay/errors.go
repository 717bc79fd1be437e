package relay

import "errors"

var (
	// ErrUnsupported marks events that were classified as unsupported and dropped.
	ErrUnsupported = errors.New("unsupported event")
	// ErrArtifact wraps failures to stage image content.
	ErrArtifact = errors.New("artifact error")
	// ErrModel wraps failures of the model call.
	ErrModel = errors.New("model error")
	// ErrDispatch wraps failures to fetch content or send a reply.
	ErrDispatch = errors.New("dispatch error")
)
