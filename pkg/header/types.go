package header

import (
	"fmt"
	"strings"
	"time"
)

var (
	ApiVersionDomain = "hgpack.dev"
	ApiVersionV1     = "v1"
)

// MetadataBuildTimestamp is the metadata key for the optional build time.
const MetadataBuildTimestamp = "build-timestamp"

// Option is a functional option for configuring Header instances.
type Option func(*Header)

// WithMetadata returns an Option that adds a metadata key-value pair to the Header.
// If the Metadata map is nil, it will be initialized.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// WithKind returns an Option that sets the Kind field of the Header.
func WithKind(kind string) Option {
	return func(h *Header) {
		h.Kind = kind
	}
}

// WithAPIVersion returns an Option that sets the APIVersion field of the Header.
func WithAPIVersion(version string) Option {
	return func(h *Header) {
		h.APIVersion = version
	}
}

// WithBuildTime records t in the metadata as RFC3339 UTC.
func WithBuildTime(t time.Time) Option {
	return WithMetadata(MetadataBuildTimestamp, t.UTC().Format(time.RFC3339))
}

// New creates a new Header instance with the provided functional options.
// The Metadata map is initialized automatically.
func New(opts ...Option) *Header {
	h := &Header{
		Metadata: make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Header carries Kubernetes-style Kind, APIVersion and Metadata fields.
type Header struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Set initializes Kind and derives APIVersion as "<kind>.hgpack.dev/v1".
// Existing metadata is kept. No timestamp is added, so two headers built
// from the same inputs are identical.
func (h *Header) Set(kind string) {
	h.Kind = kind
	h.APIVersion = fmt.Sprintf("%s.%s/%s", strings.ToLower(kind), ApiVersionDomain, ApiVersionV1)
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}
}

// BuildTime returns the recorded build time, if any.
func (h *Header) BuildTime() (time.Time, bool) {
	v, ok := h.Metadata[MetadataBuildTimestamp]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
