package pkgmanager

import (
	"context"
	"runtime"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/resource"
)

func TestProviderFor(t *testing.T) {
	Convey("providerFor", t, func() {
		d := New(nil)

		Convey("apt is selected explicitly", func() {
			p, err := d.providerFor("apt")
			So(err, ShouldBeNil)
			_, ok := p.(*aptProvider)
			So(ok, ShouldBeTrue)
		})

		Convey("homebrew is selected explicitly", func() {
			p, err := d.providerFor("homebrew")
			So(err, ShouldBeNil)
			_, ok := p.(*homebrewProvider)
			So(ok, ShouldBeTrue)
		})

		Convey("docker is selected explicitly", func() {
			p, err := d.providerFor("docker")
			So(err, ShouldBeNil)
			_, ok := p.(*dockerProvider)
			So(ok, ShouldBeTrue)
		})

		Convey("an empty provider falls back to runtime.GOOS", func() {
			p, err := d.providerFor("")
			switch runtime.GOOS {
			case "linux":
				So(err, ShouldBeNil)
				_, ok := p.(*aptProvider)
				So(ok, ShouldBeTrue)
			case "darwin":
				So(err, ShouldBeNil)
				_, ok := p.(*homebrewProvider)
				So(ok, ShouldBeTrue)
			default:
				So(err, ShouldNotBeNil)
			}
		})

		Convey("an unknown provider name errors", func() {
			_, err := d.providerFor("yum")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestApplyActionNothing(t *testing.T) {
	Convey("action=nothing never touches a provider", t, func() {
		d := New(nil)
		rec := &resource.Record{Kind: resource.KindPackage, Name: "curl", Package: &resource.PackageProps{Names: []string{"curl"}}}
		res, err := d.Apply(context.Background(), nil, rec, "nothing")
		So(err, ShouldBeNil)
		So(res.WasUpdated, ShouldBeFalse)
	})
}

func TestApplyWrapsProviderErrors(t *testing.T) {
	Convey("an unknown provider name surfaces from Apply directly", t, func() {
		d := New(nil)
		rec := &resource.Record{
			Kind:    resource.KindPackage,
			Name:    "curl",
			Package: &resource.PackageProps{Names: []string{"curl"}, Provider: "yum"},
		}
		_, err := d.Apply(context.Background(), nil, rec, "install")
		So(err, ShouldNotBeNil)
	})
}
