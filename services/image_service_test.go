package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3ImageService_UploadURLDelete(t *testing.T) {
	s3 := NewMockS3Service()
	images := NewS3ImageService(s3)
	ctx := context.Background()

	key, err := images.UploadImage(ctx, "return-1", createFileHeader(t, "dent.jpg", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, "returns/return-1/mock_dent.jpg", key)
	assert.True(t, s3.FileExists(key))

	url, err := images.GetImageURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	empty, err := images.GetImageURL(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, images.DeleteImage(ctx, key))
	assert.False(t, s3.FileExists(key))

	_, err = images.GetImageURL(ctx, key)
	assert.Error(t, err)
}

func TestS3ImageService_RejectsInvalidFiles(t *testing.T) {
	s3 := NewMockS3Service()
	images := NewS3ImageService(s3)

	_, err := images.UploadImage(context.Background(), "return-1", createFileHeader(t, "notes.txt", []byte("text")))
	assert.Error(t, err)
	_, err = images.UploadImage(context.Background(), "return-1", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s3.FileCount())
}
