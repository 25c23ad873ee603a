package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, *params.Key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	args := m.Called(ctx, *params.Key, *params.ContentType, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func pngDataURL(payload []byte) (string, string) {
	sum := sha256.Sum256(payload)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload), hex.EncodeToString(sum[:])
}

func TestS3ImageStoreUploadsNewContent(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "bucket", "https://media.example.com/")

	payload := []byte("fake png bytes")
	dataURL, digest := pngDataURL(payload)
	key := "recipes/" + digest + ".png"

	client.On("HeadObject", mock.Anything, key).Return(nil, &s3types.NotFound{}).Once()
	client.On("PutObject", mock.Anything, key, "image/png", payload).Return(&s3.PutObjectOutput{}, nil).Once()

	url, err := store.Save(context.Background(), "recipes", dataURL)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/"+key, url)
	client.AssertExpectations(t)
}

func TestS3ImageStoreReusesExistingObject(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "bucket", "")

	dataURL, digest := pngDataURL([]byte("same bytes"))
	key := "avatars/" + digest + ".png"
	client.On("HeadObject", mock.Anything, key).Return(&s3.HeadObjectOutput{}, nil).Once()

	url, err := store.Save(context.Background(), "avatars", dataURL)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/"+key, url)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestS3ImageStoreUploadFailure(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "bucket", "")

	dataURL, _ := pngDataURL([]byte("bytes"))
	client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &s3types.NotFound{})
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := store.Save(context.Background(), "recipes", dataURL)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid jpeg", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpg")), false},
		{"not a data url", "https://example.com/a.png", true},
		{"unsupported type", "data:text/plain;base64,aGVsbG8=", true},
		{"bad base64", "data:image/png;base64,!!!", true},
		{"empty payload", "data:image/png;base64,", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.DecodeDataURL(tt.input)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}
