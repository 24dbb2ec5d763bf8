package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Open returns a reader for src, which is either a local path or an
// http(s) URL. The caller closes the reader.
func Open(ctx context.Context, f *HTTPFetcher, src string) (io.ReadCloser, error) {
	if IsRemote(src) {
		if f == nil {
			f = NewHTTPFetcher(HTTPOptions{})
		}
		return f.Download(ctx, src)
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", src)
	}
	return file, nil
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
