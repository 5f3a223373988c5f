package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/GriffinCanCode/boxfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/boxfs/internal/shared/paths"
	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shared/utils"
	"go.uber.org/zap"
)

const op = "fetch"

// Fetch downloads req.URL into req.DestinationDir. The file appears under its final name
// only when the whole body arrived with a 2xx status and, when req.Checksum is set, its
// digest matches.
func (f *Fetcher) Fetch(ctx context.Context, req types.FetchRequest) (*types.Result, error) {
	if !f.profile.OutboundHTTP {
		return types.Failure(op, req.URL, types.Errorf(op, req.URL, types.KindCapabilityUnavailable, "outbound networking is disabled"))
	}

	u, err := parseURL(req.URL)
	if err != nil {
		return types.Failure(op, req.URL, types.NewError(op, req.URL, types.KindInvalidArgument, err))
	}

	hasher, want := utils.DefaultHasher(), ""
	if req.Checksum != "" {
		hasher, want, err = utils.ParseDigest(req.Checksum)
		if err != nil {
			return types.Failure(op, req.URL, types.NewError(op, req.URL, types.KindInvalidArgument, err))
		}
	}

	final, name, err := f.target(u, req)
	if err != nil {
		return types.Failure(op, req.URL, err)
	}

	strategy := f.strategy()
	res := &types.Result{Op: op, Strategy: strategy}
	if strategy != StrategyResty {
		res.Note = "using stream: rich HTTP client disabled"
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return res, res.Abort(req.URL, types.NewError(op, req.URL, types.KindNetworkError, err))
	}

	tmp, err := utils.CreateTemp(final, "part", 0644)
	if err != nil {
		return res, res.Abort(final, err)
	}
	defer tmp.Discard()

	var n int64
	err = f.breakers.For(u.Host).Do(func() error {
		var err error
		switch strategy {
		case StrategyResty:
			n, err = f.fetchResty(ctx, u.String(), tmp)
		default:
			n, err = f.fetchStream(ctx, u.String(), tmp)
		}
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = fmt.Errorf("host %s is failing: %w", u.Host, err)
	}
	if err != nil {
		f.log.Warn("fetch failed", zap.String("url", u.Redacted()), zap.String("strategy", strategy), zap.Error(err))
		return res, res.Abort(req.URL, types.NewError(op, req.URL, types.KindNetworkError, err))
	}

	sum, err := hasher.HashFile(tmp.Name())
	if err != nil {
		return res, res.Abort(final, err)
	}
	if want != "" && sum != want {
		f.log.Warn("checksum mismatch", zap.String("url", u.Redacted()), zap.String("got", sum), zap.String("want", want))
		return res, res.Abort(req.URL, types.Errorf(op, req.URL, types.KindNetworkError, "checksum mismatch: got %s, want %s", sum, want))
	}

	if err := tmp.Commit(); err != nil {
		return res, res.Abort(final, err)
	}

	res.Outcome = types.OutcomeSuccess
	res.Output = final
	res.Bytes = n
	res.Checksum = sum
	res.Succeeded(name, final)
	return res, nil
}

// target resolves the final file path for the download.
func (f *Fetcher) target(u *url.URL, req types.FetchRequest) (string, string, error) {
	dir, err := f.guard.Resolve(req.DestinationDir)
	if err != nil {
		return "", "", types.Wrap(op, req.DestinationDir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", "", types.Wrap(op, req.DestinationDir, err)
	}
	if !info.IsDir() {
		return "", "", types.Errorf(op, req.DestinationDir, types.KindInvalidArgument, "not a directory")
	}

	name := req.SuggestedName
	if name == "" {
		name = paths.NameFromURL(u.Path, f.now())
	}
	if err := paths.ValidateName(name); err != nil {
		return "", "", types.NewError(op, name, types.KindInvalidArgument, err)
	}

	final, err := f.guard.ResolveIn(dir, name)
	if err != nil {
		return "", "", types.Wrap(op, name, err)
	}
	if info, err := os.Lstat(final); err == nil && info.IsDir() {
		return "", "", types.Errorf(op, final, types.KindAlreadyExists, "a directory occupies the file name")
	}
	return final, name, nil
}

// fetchResty lets resty write the body straight into the reserved temporary file.
func (f *Fetcher) fetchResty(ctx context.Context, rawURL string, tmp *utils.TempFile) (int64, error) {
	resp, err := f.rich.R().
		SetContext(ctx).
		SetOutput(tmp.Name()).
		Get(rawURL)
	if err != nil {
		return 0, err
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("unexpected status %s", resp.Status())
	}

	info, err := os.Stat(tmp.Name())
	if err != nil {
		return 0, err
	}
	return info.Size(), checkLength(info.Size(), resp.RawResponse.ContentLength)
}

// fetchStream copies the response body into the temporary file.
func (f *Fetcher) fetchStream(ctx context.Context, rawURL string, tmp *utils.TempFile) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.plain.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return n, err
	}
	return n, checkLength(n, resp.ContentLength)
}

// checkLength rejects a body shorter or longer than the announced Content-Length.
func checkLength(got, want int64) error {
	if want >= 0 && got != want {
		return fmt.Errorf("body has %d bytes, expected %d", got, want)
	}
	return nil
}

// parseURL accepts absolute http and https URLs with a host.
func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL must use http or https scheme")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL has no host")
	}
	return u, nil
}
