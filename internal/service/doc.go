// Package service is the facade in front of the filesystem, archive and fetch providers.
//
// A Service owns one confined root. It probes the host capability profile once, builds
// the providers over a shared path guard, and runs every call through the same wrapper:
// each call gets an operation ID, is timed into the Prometheus metrics and ends with one
// structured log line carrying the outcome, strategy and error kind.
//
// The Catalog lists the operations the service exposes and whether the probed profile
// can run them.
//
// Example Usage:
//
//	svc, err := service.FromConfig(cfg, log, prometheus.DefaultRegisterer)
//	if err != nil {
//		return err
//	}
//	res, err := svc.CreateArchive(ctx, types.ArchiveRequest{
//		Sources:     []string{"docs"},
//		ArchiveName: "docs.zip",
//	})
package service
