package oci

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/distribution/reference"
	"github.com/hgpack/hgpack/pkg/bundler/result"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	// ArtifactType identifies hgpack artifacts in a registry.
	ArtifactType = "application/vnd.hgpack.artifact.v1"

	// MediaTypeExecutable is the layer media type of the executable file.
	MediaTypeExecutable = "application/vnd.hgpack.executable.v1"

	// MediaTypeLibrary is the layer media type of a library archive.
	MediaTypeLibrary = "application/vnd.hgpack.library.v1"

	// DefaultTag is used when no tag is given.
	DefaultTag = "latest"
)

// PushOptions configures a push to a remote registry.
type PushOptions struct {
	Registry    string
	Repository  string
	Tag         string
	PlainHTTP   bool
	InsecureTLS bool
	Annotations map[string]string
}

// PushResult describes the pushed manifest.
type PushResult struct {
	Reference string `json:"reference" yaml:"reference"`
	Digest    string `json:"digest" yaml:"digest"`
	Size      int64  `json:"size" yaml:"size"`
}

// ValidateRegistryReference checks that registry and repository form a
// valid, fully qualified OCI repository name.
func ValidateRegistryReference(registry, repository string) error {
	if registry == "" {
		return hgerrors.Configuration("registry is required")
	}
	if repository == "" {
		return hgerrors.Configuration("repository is required")
	}
	named, err := reference.ParseNormalizedNamed(registry + "/" + repository)
	if err != nil {
		return hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid repository reference", err)
	}
	if domain := reference.Domain(named); domain != registry {
		return hgerrors.Configuration("registry %q resolved to %q", registry, domain)
	}
	return nil
}

func tagged(opts PushOptions) (reference.NamedTagged, error) {
	if err := ValidateRegistryReference(opts.Registry, opts.Repository); err != nil {
		return nil, err
	}
	tag := opts.Tag
	if tag == "" {
		tag = DefaultTag
	}
	named, err := reference.ParseNormalizedNamed(opts.Registry + "/" + opts.Repository)
	if err != nil {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid repository reference", err)
	}
	ref, err := reference.WithTag(named, tag)
	if err != nil {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid tag", err)
	}
	return ref, nil
}

func mediaTypeFor(role result.FileRole) string {
	if role == result.RoleLibrary {
		return MediaTypeLibrary
	}
	return MediaTypeExecutable
}

// Pack pushes files as layers into target and tags the resulting
// manifest with tag.
func Pack(ctx context.Context, target oras.Target, files []result.File, tag string, annotations map[string]string) (ocispec.Descriptor, error) {
	if len(files) == 0 {
		return ocispec.Descriptor{}, hgerrors.Configuration("no files to pack")
	}

	layers := make([]ocispec.Descriptor, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return ocispec.Descriptor{}, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "failed to read artifact file", err)
		}
		desc := content.NewDescriptorFromBytes(mediaTypeFor(f.Role), data)
		if f.SHA256 != "" && desc.Digest != digest.NewDigestFromEncoded(digest.SHA256, f.SHA256) {
			return ocispec.Descriptor{}, hgerrors.Configuration("%s changed since it was built", f.Name)
		}
		desc.Annotations = map[string]string{ocispec.AnnotationTitle: f.Name}
		if err := target.Push(ctx, desc, bytes.NewReader(data)); err != nil {
			return ocispec.Descriptor{}, hgerrors.Backend("failed to store layer "+f.Name, err)
		}
		layers = append(layers, desc)
	}

	manifestDesc, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              layers,
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return ocispec.Descriptor{}, hgerrors.Backend("failed to pack manifest", err)
	}
	if err := target.Tag(ctx, manifestDesc, tag); err != nil {
		return ocispec.Descriptor{}, hgerrors.Backend("failed to tag manifest", err)
	}
	return manifestDesc, nil
}

// Push packs files and copies them to the registry named by opts.
func Push(ctx context.Context, files []result.File, opts PushOptions) (*PushResult, error) {
	ref, err := tagged(opts)
	if err != nil {
		return nil, err
	}

	store := memory.New()
	desc, err := Pack(ctx, store, files, ref.Tag(), opts.Annotations)
	if err != nil {
		return nil, err
	}

	repo, err := remote.NewRepository(ref.Name())
	if err != nil {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid repository", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = newAuthClient(opts.InsecureTLS)

	slog.Debug("copying artifact to registry",
		"reference", ref.String(),
		"digest", desc.Digest.String(),
		"plain_http", opts.PlainHTTP,
	)

	if _, err := oras.Copy(ctx, store, ref.Tag(), repo, ref.Tag(), oras.DefaultCopyOptions); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("push interrupted: %w", ctx.Err())
		}
		return nil, hgerrors.Backend("failed to push to "+ref.String(), err)
	}

	return &PushResult{
		Reference: ref.String(),
		Digest:    desc.Digest.String(),
		Size:      desc.Size,
	}, nil
}

func newAuthClient(insecureTLS bool) *auth.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure-tls
	}

	client := &auth.Client{
		Client: &http.Client{Transport: retry.NewTransport(transport)},
		Cache:  auth.NewCache(),
	}
	client.SetUserAgent("hgpack")

	if store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{}); err == nil {
		client.Credential = credentials.Credential(store)
	} else {
		slog.Debug("docker credentials unavailable", "error", err)
	}
	return client
}
