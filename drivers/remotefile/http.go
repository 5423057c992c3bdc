package remotefile

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ratazzi/hola/resource"
)

// fetchHTTP downloads p.SourceURL over http(s), sending If-None-Match/
// If-Modified-Since from prior when UseETag/UseLastModified are set, and
// reports notModified when the server answers 304.
func fetchHTTP(ctx context.Context, client *http.Client, p *resource.RemoteFileProps, prior *sidecar) (body []byte, etag, lastModified string, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.SourceURL, nil)
	if err != nil {
		return nil, "", "", false, err
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	if p.RemoteUser != "" {
		req.SetBasicAuth(p.RemoteUser, p.RemotePassword)
	}
	if prior != nil {
		if p.UseETag && prior.ETag != "" {
			req.Header.Set("If-None-Match", prior.ETag)
		}
		if p.UseLastModified && prior.LastModified != "" {
			req.Header.Set("If-Modified-Since", prior.LastModified)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, prior.ETag, prior.LastModified, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", "", false, fmt.Errorf("remote_file: GET %s: unexpected status %s", p.SourceURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", false, err
	}
	return data, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), false, nil
}

func newHTTPClient(connectTimeout, totalTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
	}
}
