package media

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataURL(n int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, n))
}

func TestCheckDataURL(t *testing.T) {
	assert.NoError(t, CheckDataURL(dataURL(100), 100))
	assert.NoError(t, CheckDataURL(dataURL(101), 0))
	assert.ErrorIs(t, CheckDataURL(dataURL(101), 100), ErrTooLarge)
	assert.NoError(t, CheckDataURL("https://example.com/a.jpg", 1))
	assert.ErrorIs(t, CheckDataURL("data:text/plain;base64,aGk=", 100), ErrNotImage)
	assert.ErrorIs(t, CheckDataURL("garbage", 100), ErrNotImage)
}

type fakePresigner struct {
	in *s3.PutObjectInput
}

func (f *fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.in = in
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + aws.ToString(in.Key), Method: "PUT"}, nil
}

func TestUploadURL(t *testing.T) {
	p := &fakePresigner{}
	u := NewUploaderWithPresigner(p, "photos")

	up, err := u.UploadURL(context.Background(), `C:\pics\beach.jpg`, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "gallery/"))
	assert.True(t, strings.HasSuffix(up.Key, "-beach.jpg"))
	assert.Equal(t, "https://bucket.example/"+up.Key, up.URL)
	assert.Equal(t, "photos", aws.ToString(p.in.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(p.in.ContentType))

	_, err = u.UploadURL(context.Background(), "notes.txt", "text/plain")
	assert.ErrorIs(t, err, ErrNotImage)
}
