// Package archive packs and unpacks archives inside a confined root.
//
// Creation picks the first usable strategy from a ranked table: native ZIP, the tar binary
// writing a gzip-compressed tar, and a plain directory mirror that needs nothing from the
// host. Every strategy writes the same pre-planned member list in the same order, into a
// hidden temporary sibling that is renamed into place only when complete.
//
// Extraction detects the layout from content (ZIP, gzip, tar, zstd, or a mirrored
// directory), stages entries in a private directory and commits them to the destination at
// the end. Every entry name is resolved below the stage through paths.Guard; link entries
// are reported and never materialized.
package archive
