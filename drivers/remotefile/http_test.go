package remotefile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/resource"
)

func TestFetchHTTP(t *testing.T) {
	Convey("fetchHTTP", t, func() {
		client := newHTTPClient(time.Second, 5*time.Second)

		Convey("a 200 response returns the body and ETag/Last-Modified", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("ETag", `"v1"`)
				w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
				_, _ = w.Write([]byte("payload"))
			}))
			defer srv.Close()

			body, etag, lastModified, notModified, err := fetchHTTP(context.Background(), client, &resource.RemoteFileProps{SourceURL: srv.URL}, nil)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, "payload")
			So(etag, ShouldEqual, `"v1"`)
			So(lastModified, ShouldEqual, "Wed, 21 Oct 2015 07:28:00 GMT")
			So(notModified, ShouldBeFalse)
		})

		Convey("a conditional request sends If-None-Match and honors 304", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				So(r.Header.Get("If-None-Match"), ShouldEqual, `"cached"`)
				w.WriteHeader(http.StatusNotModified)
			}))
			defer srv.Close()

			p := &resource.RemoteFileProps{SourceURL: srv.URL, UseETag: true}
			prior := &sidecar{ETag: `"cached"`}
			_, etag, _, notModified, err := fetchHTTP(context.Background(), client, p, prior)
			So(err, ShouldBeNil)
			So(notModified, ShouldBeTrue)
			So(etag, ShouldEqual, `"cached"`)
		})

		Convey("non-2xx, non-304 statuses are reported as an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer srv.Close()

			_, _, _, _, err := fetchHTTP(context.Background(), client, &resource.RemoteFileProps{SourceURL: srv.URL}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("basic auth credentials are sent when RemoteUser is set", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				So(ok, ShouldBeTrue)
				So(user, ShouldEqual, "alice")
				So(pass, ShouldEqual, "secret")
			}))
			defer srv.Close()

			p := &resource.RemoteFileProps{SourceURL: srv.URL, RemoteUser: "alice", RemotePassword: "secret"}
			_, _, _, _, err := fetchHTTP(context.Background(), client, p, nil)
			So(err, ShouldBeNil)
		})
	})
}
