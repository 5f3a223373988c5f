// Package fetch downloads a URL into a file inside a confined root.
//
// Two strategies share one contract. The resty strategy uses go-resty on the pooled
// transport from go-retryablehttp; the stream strategy uses a go-cleanhttp client and
// copies the body itself. Either way the body lands in a hidden ".part" sibling and is
// renamed to the final name only after a 2xx status and a complete body. Any failure
// removes the partial file.
//
// Fetching is never retried here; callers that want retries wrap the service.
package fetch
