package awskms

import (
	"testing"

	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAlgorithm(t *testing.T) {
	Convey("algorithm", t, func() {
		Convey("an empty string defaults to SYMMETRIC_DEFAULT", func() {
			So(algorithm(""), ShouldEqual, kmstypes.EncryptionAlgorithmSpecSymmetricDefault)
		})

		Convey("an explicit algorithm passes through", func() {
			So(algorithm("RSAES_OAEP_SHA_256"), ShouldEqual, kmstypes.EncryptionAlgorithmSpec("RSAES_OAEP_SHA_256"))
		})
	})
}

func TestBytesEqual(t *testing.T) {
	Convey("bytesEqual", t, func() {
		Convey("identical byte slices are equal", func() {
			So(bytesEqual([]byte("abc"), []byte("abc")), ShouldBeTrue)
		})

		Convey("different lengths are unequal", func() {
			So(bytesEqual([]byte("abc"), []byte("ab")), ShouldBeFalse)
		})

		Convey("same length but different content is unequal", func() {
			So(bytesEqual([]byte("abc"), []byte("abd")), ShouldBeFalse)
		})
	})
}
