// Package paths confines filesystem paths to a single root directory.
//
// Every provider turns caller input into a path through Guard before touching the
// filesystem. A path is accepted only when its canonical form (absolute, cleaned,
// symlinks resolved) equals the root or lies below it at a separator boundary.
// Resolution errors fail closed as OutOfBounds; a path that is merely missing, with
// every existing ancestor inside the root, reports NotFound.
//
// # Resolution Modes
//
//   - Resolve: existing path, final symlink followed
//   - ResolveFor: path that may not exist yet (creation targets)
//   - ResolveEntry: existing entry, final symlink not followed (delete, rename)
//   - ResolveIn: relative name below a canonical base (file names, archive entries)
//
// # Usage
//
//	g, err := paths.NewGuard("/srv/files")
//	p, err := g.Resolve("docs/report.txt")             // /srv/files/docs/report.txt
//	_, err = g.Resolve("/srv/files/../../etc/passwd")  // OutOfBounds
//	_, err = g.ResolveIn(dest, "../../evil.txt")       // OutOfBounds (zip-slip)
//
// The package also derives auxiliary names: fallback archive names, default
// extraction directories, and hidden temporary siblings used for atomic commits.
package paths
