package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadcheck/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files over FTP. Credentials come from the URL
// userinfo; without them the login is anonymous.
type FTPFetcher struct {
	opts  FTPOptions
	retry resilience.RetryConfig
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{
		opts: opts,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			OnRetry:        resilience.RetryLogger("ftp", "download"),
		},
	}
}

type ftpTarget struct {
	addr string
	user string
	pass string
	path string
}

// parseFTPURL extracts the dial address, credentials, and file path
// from an FTP URL.
func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	t := ftpTarget{
		addr: u.Host,
		user: "anonymous",
		pass: "anonymous@",
		path: u.Path,
	}
	if _, _, splitErr := net.SplitHostPort(t.addr); splitErr != nil {
		t.addr = net.JoinHostPort(t.addr, "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			t.pass = pass
		}
	}
	if t.path == "" {
		return ftpTarget{}, eris.New("empty path in ftp url")
	}

	return t, nil
}

// ftpConnReader wraps an FTP response and connection so that closing the reader
// also closes the FTP response and disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file, and returns a reader.
// Transient dial and transfer failures are retried. The caller must close the
// returned ReadCloser to release the FTP connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	target, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("addr", target.addr), zap.String("path", target.path))

	return resilience.DoVal(ctx, f.retry, func(ctx context.Context) (io.ReadCloser, error) {
		return f.fetch(ctx, target)
	})
}

func (f *FTPFetcher) fetch(ctx context.Context, target ftpTarget) (io.ReadCloser, error) {
	conn, err := ftp.Dial(target.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login(target.user, target.pass); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(target.path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}
