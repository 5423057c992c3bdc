package file

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/resource"
)

func applyFile(t *testing.T, d *Driver, path string, p resource.FileProps, action string) (resource.ApplyResult, error) {
	p.Path = resource.Name(path)
	p.Action = action
	rec := &resource.Record{Kind: resource.KindFile, Name: resource.Name(path), File: &p}
	return d.Apply(context.Background(), nil, rec, action)
}

func TestFileCreate(t *testing.T) {
	Convey("create", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "motd")
		d := New(0)

		Convey("writes content and reports an update", func() {
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("hello")}, "create")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
			got, _ := os.ReadFile(path)
			So(string(got), ShouldEqual, "hello")
		})

		Convey("a second identical apply is a no-op", func() {
			_, err := applyFile(t, d, path, resource.FileProps{Content: []byte("hello")}, "create")
			So(err, ShouldBeNil)
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("hello")}, "create")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeFalse)
		})

		Convey("different content updates again", func() {
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("hello")}, "create")
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("goodbye")}, "create")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
			got, _ := os.ReadFile(path)
			So(string(got), ShouldEqual, "goodbye")
		})

		Convey("sets the requested mode", func() {
			_, err := applyFile(t, d, path, resource.FileProps{Content: []byte("x"), Mode: "0600"}, "create")
			So(err, ShouldBeNil)
			fi, err := os.Stat(path)
			So(err, ShouldBeNil)
			So(fi.Mode().Perm(), ShouldEqual, os.FileMode(0o600))
		})

		Convey("rotates backups when Backup is set", func() {
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("v1"), Backup: 1}, "create")
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("v2"), Backup: 1}, "create")
			got, err := os.ReadFile(path + ".1")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "v1")
		})

		Convey("a second apply naming the file's own current owner/group is a no-op", func() {
			owner := strconv.Itoa(os.Getuid())
			group := strconv.Itoa(os.Getgid())
			_, err := applyFile(t, d, path, resource.FileProps{Content: []byte("hello"), Owner: owner, Group: group}, "create")
			So(err, ShouldBeNil)
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("hello"), Owner: owner, Group: group}, "create")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeFalse)
		})
	})
}

func TestFileCreateIfMissing(t *testing.T) {
	Convey("create_if_missing", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "conf")
		d := New(0)

		Convey("creates when absent", func() {
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("first")}, "create_if_missing")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
		})

		Convey("never overwrites an existing file", func() {
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("first")}, "create_if_missing")
			res, err := applyFile(t, d, path, resource.FileProps{Content: []byte("second")}, "create_if_missing")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeFalse)
			got, _ := os.ReadFile(path)
			So(string(got), ShouldEqual, "first")
		})
	})
}

func TestFileTouch(t *testing.T) {
	Convey("touch", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "touched")
		d := New(0)

		Convey("creates an empty file if missing", func() {
			res, err := applyFile(t, d, path, resource.FileProps{}, "touch")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
			got, _ := os.ReadFile(path)
			So(got, ShouldBeEmpty)
		})

		Convey("updates mtime on an existing file without touching content", func() {
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("keep me")}, "create")
			res, err := applyFile(t, d, path, resource.FileProps{}, "touch")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
			got, _ := os.ReadFile(path)
			So(string(got), ShouldEqual, "keep me")
		})
	})
}

func TestFileDelete(t *testing.T) {
	Convey("delete", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "todelete")
		d := New(0)

		Convey("is a no-op for an absent file", func() {
			res, err := applyFile(t, d, path, resource.FileProps{}, "delete")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeFalse)
		})

		Convey("removes an existing file", func() {
			_, _ = applyFile(t, d, path, resource.FileProps{Content: []byte("x")}, "create")
			res, err := applyFile(t, d, path, resource.FileProps{}, "delete")
			So(err, ShouldBeNil)
			So(res.WasUpdated, ShouldBeTrue)
			_, statErr := os.Lstat(path)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}
