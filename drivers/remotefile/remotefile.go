package remotefile

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/atomicfile"
	"github.com/ratazzi/hola/internal/hashutil"
	"github.com/ratazzi/hola/internal/modeparse"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

const defaultMode = os.FileMode(0o644)

// Driver converges resource.RemoteFileProps records by fetching over
// whichever transport SourceURL's scheme names, then deferring to the
// same atomic-write/backup/ownership protocol as the file driver.
type Driver struct {
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
	cache          *runCache
}

// New returns a remote_file Driver whose http(s) transport applies
// connectTimeout/totalTimeout (config.Config's ConnectTimeoutSeconds/
// TotalTimeoutSeconds).
func New(connectTimeout, totalTimeout time.Duration) *Driver {
	return &Driver{ConnectTimeout: connectTimeout, TotalTimeout: totalTimeout, cache: newRunCache()}
}

func (d *Driver) Apply(ctx context.Context, env *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.RemoteFile
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	switch action {
	case "delete":
		return d.delete(path, p, action)
	case "touch":
		return d.touch(path, action)
	case "create_if_missing":
		if _, statErr := os.Lstat(path); statErr == nil {
			return resource.NoUpdate(action, "already exists"), nil
		}
		return d.fetchAndWrite(ctx, env, path, p, action)
	default: // "create"
		return d.fetchAndWrite(ctx, env, path, p, action)
	}
}

func (d *Driver) fetchAndWrite(ctx context.Context, env *drivers.Env, path string, p *resource.RemoteFileProps, action string) (resource.ApplyResult, error) {
	prior, _ := loadSidecar(path)

	body, etag, lastModified, notModified, err := d.fetch(ctx, env, p, prior)
	if err != nil {
		return resource.ApplyResult{}, err
	}

	if notModified {
		if !p.ForceUnlink {
			return resource.NoUpdate(action, "upstream reports not modified"), nil
		}
	}

	if p.Checksum != "" && !notModified {
		got := hashutil.Sha256Hex(body)
		if !hashutil.Matches(p.Checksum, got) {
			return resource.ApplyResult{}, &drivers.NotFoundError{What: "remote_file checksum match", Name: p.SourceURL}
		}
	}

	if !notModified {
		if existing, readErr := os.ReadFile(path); readErr == nil && hashutil.Key(existing) == hashutil.Key(body) {
			d.persist(path, p, etag, lastModified, body)
			return resource.NoUpdate(action, "content unchanged"), nil
		}
	}

	mode, hasMode, err := modeparse.Parse(p.Mode)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	useMode := modeparse.Or(mode, hasMode, defaultMode)

	if p.ForceUnlink {
		_ = os.Remove(path)
	}

	backup := p.Backup
	if err := atomicfile.Write(path, body, useMode, backup); err != nil {
		return resource.ApplyResult{}, err
	}
	if p.Owner != "" || p.Group != "" {
		if err := ownership.Chown(path, p.Owner, p.Group); err != nil {
			return resource.ApplyResult{}, err
		}
	}
	d.persist(path, p, etag, lastModified, body)
	return resource.Updated(action), nil
}

func (d *Driver) persist(path string, p *resource.RemoteFileProps, etag, lastModified string, body []byte) {
	_ = saveSidecar(path, &sidecar{
		ETag:         etag,
		LastModified: lastModified,
		Checksum:     hashutil.Sha256Hex(body),
		SourceURL:    p.SourceURL,
	})
}

// fetch dispatches on SourceURL's scheme, consulting the run-scoped cache
// first so two resources pointed at the same URL in one recipe only fetch
// it once.
func (d *Driver) fetch(ctx context.Context, env *drivers.Env, p *resource.RemoteFileProps, prior *sidecar) (body []byte, etag, lastModified string, notModified bool, err error) {
	if cached, ok := d.cache.getBody(p.SourceURL); ok {
		return cached, "", "", false, nil
	}

	limiter := env.Limiters.ForURL(p.SourceURL)
	receipt, rerr := limiter.Request(1)
	if rerr != nil {
		return nil, "", "", false, rerr
	}
	limiter.WaitUntilGranted(receipt)
	defer limiter.Release(receipt)

	switch {
	case strings.HasPrefix(p.SourceURL, "sftp://"):
		body, err = fetchSFTP(p, d.ConnectTimeout)
	case strings.HasPrefix(p.SourceURL, "s3://"):
		body, err = fetchS3(ctx, p)
	default:
		client := newHTTPClient(d.ConnectTimeout, d.TotalTimeout)
		body, etag, lastModified, notModified, err = fetchHTTP(ctx, client, p, prior)
	}
	if err != nil {
		return nil, "", "", false, err
	}
	if !notModified {
		d.cache.putBody(p.SourceURL, body)
	}
	return body, etag, lastModified, notModified, nil
}

func (d *Driver) touch(path, action string) (resource.ApplyResult, error) {
	if _, err := os.Lstat(path); err != nil {
		return resource.ApplyResult{}, err
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return resource.ApplyResult{}, err
	}
	return resource.Updated(action), nil
}

func (d *Driver) delete(path string, p *resource.RemoteFileProps, action string) (resource.ApplyResult, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return resource.NoUpdate(action, "already absent"), nil
	}
	if err := os.Remove(path); err != nil {
		return resource.ApplyResult{}, err
	}
	_ = os.Remove(sidecarPath(path))
	return resource.Updated(action), nil
}
