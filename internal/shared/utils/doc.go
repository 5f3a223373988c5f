// Package utils holds small file helpers shared by the providers: atomic commits through
// hidden temporary siblings, context-aware readers, confined file copies and content
// digests.
package utils
