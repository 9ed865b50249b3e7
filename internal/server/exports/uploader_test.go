package exports

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/garagebook/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "garagebook",
	}
}

func stubAWS(t *testing.T) *s3.Options {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{Region: lo.Region}, nil
	}

	captured := &s3.Options{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(captured)
		}
		return s3.New(s3.Options{Region: cfg.Region})
	}
	return captured
}

func TestNewS3Uploader(t *testing.T) {
	opts := stubAWS(t)

	u, err := NewS3Uploader(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "garagebook", u.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Uploader_NoEndpoint(t *testing.T) {
	opts := stubAWS(t)
	cfg := testConfig()
	cfg.S3BaseEndpoint = ""

	_, err := NewS3Uploader(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, opts.BaseEndpoint)
	assert.False(t, opts.UsePathStyle)
}

func TestNewS3Uploader_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Uploader(context.Background(), testConfig())
	require.EqualError(t, err, "load-fail")
}

func TestUpload(t *testing.T) {
	stubAWS(t)
	u, err := NewS3Uploader(context.Background(), testConfig())
	require.NoError(t, err)

	orig := putObject
	t.Cleanup(func() { putObject = orig })

	var gotKey, gotBody, gotType string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		assert.Equal(t, "garagebook", aws.ToString(in.Bucket))
		gotKey = aws.ToString(in.Key)
		gotType = aws.ToString(in.ContentType)
		b, _ := io.ReadAll(in.Body)
		gotBody = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	require.NoError(t, u.Upload(context.Background(), "k.json", []byte(`[]`), "application/json"))
	assert.Equal(t, "k.json", gotKey)
	assert.Equal(t, "[]", gotBody)
	assert.Equal(t, "application/json", gotType)

	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("denied")
	}
	require.EqualError(t, u.Upload(context.Background(), "k.json", nil, "application/json"), "put object: denied")
}

func TestPresignGet(t *testing.T) {
	stubAWS(t)
	u, err := NewS3Uploader(context.Background(), testConfig())
	require.NoError(t, err)

	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, LinkValidity, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://example/" + aws.ToString(in.Key)}, nil
	}

	url, err := u.PresignGet(context.Background(), "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, "https://example/a/b.json", url)

	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("boom")
	}
	_, err = u.PresignGet(context.Background(), "a/b.json")
	require.EqualError(t, err, "presign get: boom")
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(42, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	re := regexp.MustCompile(`^accounts/42/exports/2024/03/05/[0-9a-f-]{36}\.json$`)
	assert.Regexp(t, re, key)
	assert.NotEqual(t, key, ObjectKey(42, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)))
}
