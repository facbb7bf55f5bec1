// Package provider models the out-of-scope-adjacent collaborator that
// locates, and optionally fetches, the SP3 product file covering a given
// satellite and instant, and the stitching loop that concatenates adjacent
// products into one continuous record sequence (§6 of the project notes).
//
// Network access and CDDIS OAuth are out of scope; HTTPProvider models the
// shape of that collaborator for completeness of the contract, but only
// FileProvider (reading a pre-populated local directory) is exercised by
// this module's own tests.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/mholt/archiver/v3"
	"github.com/sirupsen/logrus"

	"github.com/gnss-tools/sp3eph/pkg/gnss"
)

// Compression is the on-the-wire encoding of a provider's product files.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionUnix Compression = "unix" // .Z / LZW, unimplemented
)

// Parameters are the template variables available to a provider's name and
// URL templates, derived from a requested instant.
type Parameters struct {
	Year      int
	DayOfYear int
	GPSWeek   int
}

// Provider resolves a satellite id and instant to a local SP3 file path,
// fetching it first if the provider is network-backed.
type Provider interface {
	// Covers reports whether this provider ever carries sp3Id.
	Covers(sp3Id string) bool
	// TimeSystem is the time base the provider's products are tabulated in.
	TimeSystem() gnss.TimeSystem
	// Duration is the time span covered by one product file from this
	// provider, used to step the stitching search forward or backward.
	Duration() time.Duration
	// Resolve returns the local path to the product file covering t,
	// downloading/decompressing it into dir first if necessary.
	Resolve(ctx context.Context, t time.Time, dir string, force bool) (string, error)
}

func timeToParameters(sys gnss.TimeSystem, t time.Time) (Parameters, error) {
	native, err := sys.FromUTC(t)
	if err != nil {
		return Parameters{}, err
	}
	gpsEpoch := time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)
	days := int(native.Sub(gpsEpoch).Hours() / 24)
	return Parameters{
		Year:      native.Year(),
		DayOfYear: native.YearDay(),
		GPSWeek:   days / 7,
	}, nil
}

func renderTemplate(tmpl string, params Parameters) (string, error) {
	t, err := template.New("provider").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("provider: parse template %q: %w", tmpl, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("provider: render template %q: %w", tmpl, err)
	}
	return buf.String(), nil
}

// FileProvider resolves products from a pre-populated local directory; it
// never downloads anything. This is the only Provider exercised by this
// module's own tests.
type FileProvider struct {
	NameTemplate string
	Sp3IdSet     map[string]struct{}
	TimeSys      gnss.TimeSystem
	DurationVal  time.Duration
}

func (p *FileProvider) Covers(sp3Id string) bool {
	_, ok := p.Sp3IdSet[sp3Id]
	return ok
}

func (p *FileProvider) TimeSystem() gnss.TimeSystem { return p.TimeSys }
func (p *FileProvider) Duration() time.Duration     { return p.DurationVal }

func (p *FileProvider) Resolve(_ context.Context, t time.Time, dir string, _ bool) (string, error) {
	params, err := timeToParameters(p.TimeSys, t)
	if err != nil {
		return "", err
	}
	name, err := renderTemplate(p.NameTemplate, params)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", &ErrProductNotFound{Path: path}
	}
	return path, nil
}

// HTTPProvider models the original's anonymous (non-OAuth) requests.get +
// decompress flow. Never exercised by tests that require network access.
type HTTPProvider struct {
	NameTemplate string
	URLTemplate  string
	Compression  Compression
	Sp3IdSet     map[string]struct{}
	TimeSys      gnss.TimeSystem
	DurationVal  time.Duration
	Client       *http.Client
	Log          *logrus.Logger
}

func (p *HTTPProvider) Covers(sp3Id string) bool {
	_, ok := p.Sp3IdSet[sp3Id]
	return ok
}

func (p *HTTPProvider) TimeSystem() gnss.TimeSystem { return p.TimeSys }
func (p *HTTPProvider) Duration() time.Duration     { return p.DurationVal }

// ErrUnsupportedCompression is returned by HTTPProvider.Resolve for
// CompressionUnix (.Z / LZW); decompressing it is an explicit non-goal.
type ErrUnsupportedCompression struct {
	Compression Compression
}

func (e *ErrUnsupportedCompression) Error() string {
	return fmt.Sprintf("provider: unsupported compression %q", e.Compression)
}

// ErrFetchFailed wraps a product fetch whose HTTP status is neither 200
// nor 404.
type ErrFetchFailed struct {
	URL        string
	StatusCode int
}

func (e *ErrFetchFailed) Error() string {
	return fmt.Sprintf("provider: fetching %q failed: status %d", e.URL, e.StatusCode)
}

// ErrProductNotFound signals that a provider has no product covering the
// requested instant: the stitching loop in Load treats this as "this
// provider's coverage ends here", not a hard failure.
type ErrProductNotFound struct {
	Path string
}

func (e *ErrProductNotFound) Error() string {
	return fmt.Sprintf("provider: no product at %q", e.Path)
}

func (p *HTTPProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *HTTPProvider) log() *logrus.Logger {
	if p.Log != nil {
		return p.Log
	}
	return logrus.StandardLogger()
}

func (p *HTTPProvider) Resolve(ctx context.Context, t time.Time, dir string, force bool) (string, error) {
	if p.Compression == CompressionUnix {
		return "", &ErrUnsupportedCompression{Compression: p.Compression}
	}

	params, err := timeToParameters(p.TimeSys, t)
	if err != nil {
		return "", err
	}
	name, err := renderTemplate(p.NameTemplate, params)
	if err != nil {
		return "", err
	}
	finalPath := filepath.Join(dir, name)
	if !force {
		if _, err := os.Stat(finalPath); err == nil {
			return finalPath, nil
		}
	}

	url, err := renderTemplate(p.URLTemplate, params)
	if err != nil {
		return "", err
	}

	requestID := uuid.New().String()
	p.log().WithFields(logrus.Fields{
		"request_id": requestID,
		"url":        url,
		"dest":       finalPath,
	}).Info("provider: fetching sp3 product")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("provider: mkdir %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("provider: build request: %w", err)
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("provider: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	// The corrected behaviour: check the HTTP response status code
	// directly, not a confused errno comparison against 404.
	if resp.StatusCode == http.StatusNotFound {
		p.log().WithField("request_id", requestID).Warn("provider: product not found (404)")
		return "", &ErrProductNotFound{Path: url}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ErrFetchFailed{URL: url, StatusCode: resp.StatusCode}
	}

	rawSuffix := ".download"
	if p.Compression == CompressionGzip {
		rawSuffix = ".download.gz"
	}
	rawPath := finalPath + rawSuffix

	out, err := os.Create(rawPath)
	if err != nil {
		return "", fmt.Errorf("provider: create %s: %w", rawPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(rawPath)
		return "", fmt.Errorf("provider: write %s: %w", rawPath, err)
	}
	out.Close()

	switch p.Compression {
	case CompressionNone:
		if err := os.Rename(rawPath, finalPath); err != nil {
			return "", fmt.Errorf("provider: finalize %s: %w", finalPath, err)
		}
	case CompressionGzip:
		if err := archiver.DecompressFile(rawPath, finalPath); err != nil {
			return "", fmt.Errorf("provider: decompress %s: %w", rawPath, err)
		}
		os.Remove(rawPath)
	}

	return finalPath, nil
}
