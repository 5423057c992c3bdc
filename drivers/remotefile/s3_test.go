package remotefile

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitS3URL(t *testing.T) {
	Convey("splitS3URL", t, func() {
		Convey("splits bucket and key", func() {
			bucket, key, err := splitS3URL("s3://my-bucket/path/to/object.txt")
			So(err, ShouldBeNil)
			So(bucket, ShouldEqual, "my-bucket")
			So(key, ShouldEqual, "path/to/object.txt")
		})

		Convey("a URL with no key path errors", func() {
			_, _, err := splitS3URL("s3://my-bucket")
			So(err, ShouldNotBeNil)
		})
	})
}
