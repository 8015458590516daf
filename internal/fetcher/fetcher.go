// Package fetcher resolves input sources into parsed tables. A source
// is a local path or an http(s)/ftp URL pointing at a CSV or XLSX
// export.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadcheck/internal/model"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Loader opens sources by scheme and parses them by extension.
type Loader struct {
	remote map[string]Fetcher
}

// NewLoader builds a loader with HTTP and FTP backends sharing the
// given HTTP options' timeout.
func NewLoader(opts HTTPOptions) *Loader {
	httpFetcher := NewHTTPFetcher(opts)
	return &Loader{
		remote: map[string]Fetcher{
			"http":  httpFetcher,
			"https": httpFetcher,
			"ftp":   NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
		},
	}
}

// Open returns a reader for the raw bytes of source. Sources without a
// URL scheme are opened as local files.
func (l *Loader) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if scheme, ok := sourceScheme(source); ok {
		f, supported := l.remote[scheme]
		if !supported {
			return nil, eris.Errorf("fetcher: unsupported scheme %q", scheme)
		}
		return f.Download(ctx, source)
	}
	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}
	return file, nil
}

// Load fetches and parses source into a table. Sources ending in .xlsx
// are read as workbooks; everything else is treated as CSV.
func (l *Loader) Load(ctx context.Context, source string) (*model.Table, error) {
	zap.L().Debug("loading table", zap.String("source", source))

	if isXLSX(source) {
		return l.loadXLSX(ctx, source)
	}

	rc, err := l.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	table, err := ReadCSV(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s", source)
	}
	return table, nil
}

func (l *Loader) loadXLSX(ctx context.Context, source string) (*model.Table, error) {
	if _, remote := sourceScheme(source); !remote {
		return ReadXLSX(source, XLSXOptions{})
	}
	rc, err := l.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read workbook body")
	}
	return ReadXLSXBytes(data, XLSXOptions{})
}

// sourceScheme reports the URL scheme of source, if it has one. Windows
// drive prefixes like "C:\" are not schemes.
func sourceScheme(source string) (string, bool) {
	scheme, _, found := strings.Cut(source, "://")
	if !found || scheme == "" || strings.ContainsAny(scheme, `/\`) {
		return "", false
	}
	return strings.ToLower(scheme), true
}

// isXLSX checks the extension of the path part of source, ignoring any
// query string.
func isXLSX(source string) bool {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.EqualFold(filepath.Ext(source), ".xlsx")
}
