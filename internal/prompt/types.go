package prompt

// Template names the prompt template a Request was built from.
type Template string

// Known templates.
const (
	TemplateStory  Template = "story"
	TemplateVision Template = "vision"
)

// SegmentKind distinguishes text segments from image references.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentImage
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentText:
		return "text"
	case SegmentImage:
		return "image"
	default:
		return "unknown"
	}
}

// Segment is one ordered part of the user turn.
type Segment struct {
	Kind SegmentKind
	// Text is set for text segments.
	Text string
	// ImagePath is the artifact path for image segments.
	ImagePath string
}

// Request is a fully built model request.
type Request struct {
	Template    Template
	Instruction string
	Segments    []Segment
}

// TextSegments returns the text segments of the request in order.
func (r Request) TextSegments() []string {
	var out []string
	for _, s := range r.Segments {
		if s.Kind == SegmentText {
			out = append(out, s.Text)
		}
	}
	return out
}

// ImagePaths returns the image references of the request in order.
func (r Request) ImagePaths() []string {
	var out []string
	for _, s := range r.Segments {
		if s.Kind == SegmentImage {
			out = append(out, s.ImagePath)
		}
	}
	return out
}
