package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const userAgent = "papertrader/1.0"

// getJSON issues a GET against base+path with query opts and decodes a 200
// response into v. Any other status is reported as ErrUpstream.
func getJSON(ctx context.Context, client *http.Client, base, path string, opts map[string]string, v any) error {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	u.Path = strings.TrimRight(u.Path, "/") + path

	q := u.Query()
	for k, val := range opts {
		q.Set(k, val)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("%w: http %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}
