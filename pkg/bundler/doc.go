// Package bundler turns a build configuration into a published artifact.
//
// DefaultBundler.Make validates the configuration, picks a packaging
// backend from the Registry, runs it in a private staging directory and
// then moves the produced files into the output directory. Each file is
// copied to a temp file next to its destination, synced and renamed, so
// an interrupted or failed run never leaves a truncated artifact behind.
//
// Usage:
//
//	cfg := config.NewConfig(config.WithEntryPoint("git-remote-hg"))
//	out, err := bundler.New().Make(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.Summary())
//
// Build outcomes are recorded as Prometheus metrics and can be exported
// with WriteMetricsFile.
package bundler
