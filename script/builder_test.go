package script

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/resource"
)

func TestRecipeFileBuilder(t *testing.T) {
	Convey("Recipe.File", t, func() {
		rc := NewRecipe()
		rec, err := rc.File("/etc/motd", func(b *FileBuilder) {
			b.Content("hello").Mode("0644").Owner("root").Backup(3)
		})
		So(err, ShouldBeNil)
		So(rec.Kind, ShouldEqual, resource.KindFile)
		So(string(rec.File.Content), ShouldEqual, "hello")
		So(rec.File.Mode, ShouldEqual, "0644")
		So(rec.File.Backup, ShouldEqual, 3)
	})
}

func TestRecipeGitBuilderDefaults(t *testing.T) {
	Convey("Recipe.Git applies wr-style defaults before the block runs", t, func() {
		rc := NewRecipe()
		rec, err := rc.Git("/srv/app", func(b *GitBuilder) {
			b.Repository("git@example.test:app.git")
		})
		So(err, ShouldBeNil)
		So(rec.Git.Revision, ShouldEqual, "HEAD")
		So(rec.Git.CheckoutBranch, ShouldEqual, "deploy")
		So(rec.Git.EnableCheckout, ShouldBeTrue)
		So(rec.Git.EnableStrictHostKeyChecking, ShouldBeTrue)
	})
}

func TestRecipeRemoteFileBuilderDefaults(t *testing.T) {
	Convey("Recipe.RemoteFile defaults use_etag/use_last_modified true", t, func() {
		rc := NewRecipe()
		rec, err := rc.RemoteFile("/etc/app.conf", func(b *RemoteFileBuilder) {
			b.Source("https://example.test/app.conf")
		})
		So(err, ShouldBeNil)
		So(rec.RemoteFile.UseETag, ShouldBeTrue)
		So(rec.RemoteFile.UseLastModified, ShouldBeTrue)
	})
}

func TestRecipeGuardBlocks(t *testing.T) {
	Convey("OnlyIfBlock/NotIfBlock register pinnable guard callables", t, func() {
		rc := NewRecipe()
		_, err := rc.File("/etc/thing", func(b *FileBuilder) {
			b.OnlyIfBlock(func() (bool, error) { return true, nil })
		})
		So(err, ShouldBeNil)
		So(rc.Interpreter.PinnedCount(), ShouldEqual, 1)
	})
}

func TestRecipeRubyBlock(t *testing.T) {
	Convey("Recipe.RubyBlock pins its callable immediately", t, func() {
		rc := NewRecipe()
		var ran bool
		rec, err := rc.RubyBlock("restart-app", func() error { ran = true; return nil }, nil)
		So(err, ShouldBeNil)
		So(rc.Interpreter.PinnedCount(), ShouldEqual, 1)

		ok := rc.Interpreter.InvokeBlock(rec.RubyBlock.Callable)
		So(ok, ShouldBeNil)
		So(ran, ShouldBeTrue)
	})
}

func TestAWSKMSBuilderSourceErrorSurfaces(t *testing.T) {
	Convey("AWSKMSBuilder.Source defers a bad URI to AWSKMS()'s return", t, func() {
		rc := NewRecipe()
		_, err := rc.AWSKMS("/etc/secret", func(b *AWSKMSBuilder) {
			b.KeyID("alias/test").Source("/no/such/file/at/all")
		})
		So(err, ShouldNotBeNil)
	})

	Convey("a valid source resolves cleanly", t, func() {
		dir := t.TempDir()
		p := filepath.Join(dir, "ciphertext.b64")
		So(os.WriteFile(p, []byte(base64.StdEncoding.EncodeToString([]byte("ciphertext"))), 0o600), ShouldBeNil)

		rc := NewRecipe()
		rec, err := rc.AWSKMS("/etc/secret", func(b *AWSKMSBuilder) {
			b.KeyID("alias/test").Source(p)
		})
		So(err, ShouldBeNil)
		So(string(rec.AWSKMS.ParsedSource), ShouldEqual, "ciphertext")
	})
}
