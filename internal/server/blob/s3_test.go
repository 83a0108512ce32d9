package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	lastCT  string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = b
	f.lastCT = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(b)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func withFakeS3(t *testing.T) *fakeS3 {
	t.Helper()
	fake := newFakeS3()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return fake
	}

	return fake
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	fake := withFakeS3(t)
	s, err := NewS3Store(context.Background(), S3Config{
		RootUser:     "minioadmin",
		RootPassword: "minioadmin",
		Bucket:       "vault",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Store_PutGetDelete(t *testing.T) {
	s, fake := newTestS3Store(t)
	ctx := context.Background()

	key, err := s.Put(ctx, []byte("hello"), "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "files/"))
	assert.Equal(t, "text/plain", fake.lastCT)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_PutError(t *testing.T) {
	s, fake := newTestS3Store(t)
	fake.putErr = errors.New("bucket gone")

	_, err := s.Put(context.Background(), []byte("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestNewS3Store_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
