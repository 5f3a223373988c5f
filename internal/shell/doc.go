// Package shell runs external programs with captured output.
//
// Only argument vectors are accepted. There is no way to pass a command line through
// /bin/sh, which keeps user-supplied file names out of shell parsing entirely.
//
// Example Usage:
//
//	r := shell.New()
//	res, err := r.Run(ctx, dir, "/usr/bin/tar", "-tzf", "backup.tar.gz")
//	var runErr *shell.RunError
//	if errors.As(err, &runErr) {
//		log.Printf("tar exited %d: %s", runErr.ExitCode, runErr.Stderr)
//	}
package shell
