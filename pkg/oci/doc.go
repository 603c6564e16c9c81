// Package oci publishes built artifacts to OCI registries.
//
// Artifact files are packed as layers of a single OCI image manifest
// (artifact type application/vnd.hgpack.artifact.v1) in an in-memory
// store and then copied to the remote repository with ORAS:
//
//	res, err := oci.Push(ctx, out.Artifact.Files, oci.PushOptions{
//	    Registry:   "ghcr.io",
//	    Repository: "example/git-remote-hg",
//	    Tag:        "v1.0.0",
//	})
//
// Credentials are read from the Docker config file when present.
package oci
