package pkgmanager

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// dockerProvider treats "package" names as image references and install/
// remove/upgrade as pull/rmi/re-pull, for recipes that declare a docker
// provider explicitly.
type dockerProvider struct{}

func (d *dockerProvider) install(ctx context.Context, names []string, version string, options []string) (bool, error) {
	cli, err := newClient()
	if err != nil {
		return false, err
	}
	defer cli.Close()

	updated := false
	for _, ref := range refs(names, version) {
		present, err := d.imagePresent(ctx, cli, ref)
		if err != nil {
			return false, err
		}
		if present {
			continue
		}
		if err := d.pull(ctx, cli, ref); err != nil {
			return false, err
		}
		updated = true
	}
	return updated, nil
}

func (d *dockerProvider) remove(ctx context.Context, names []string) (bool, error) {
	cli, err := newClient()
	if err != nil {
		return false, err
	}
	defer cli.Close()

	updated := false
	for _, ref := range names {
		present, err := d.imagePresent(ctx, cli, ref)
		if err != nil {
			return false, err
		}
		if !present {
			continue
		}
		if _, err := cli.ImageRemove(ctx, ref, image.RemoveOptions{}); err != nil {
			return false, err
		}
		updated = true
	}
	return updated, nil
}

func (d *dockerProvider) upgrade(ctx context.Context, names []string, options []string) (bool, error) {
	cli, err := newClient()
	if err != nil {
		return false, err
	}
	defer cli.Close()

	updated := false
	for _, ref := range refs(names, "") {
		if err := d.pull(ctx, cli, ref); err != nil {
			return false, err
		}
		updated = true
	}
	return updated, nil
}

func (d *dockerProvider) imagePresent(ctx context.Context, cli *client.Client, ref string) (bool, error) {
	_, err := cli.ImageInspect(ctx, ref)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, err
}

func (d *dockerProvider) pull(ctx context.Context, cli *client.Client, ref string) error {
	rc, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pkgmanager: docker pull %s: %w", ref, err)
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

func newClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func refs(names []string, version string) []string {
	if version == "" {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + ":" + version
	}
	return out
}
