package datatypes

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage_RawBase64(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	img, err := DecodeImage(payload)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.Equal(t, []byte("jpeg bytes"), img.Data)
}

func TestDecodeImage_DataURI(t *testing.T) {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 0x50})

	img, err := DecodeImage(payload)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, []byte{0x89, 0x50}, img.Data)
}

func TestDecodeImage_DataURIWithoutMIME(t *testing.T) {
	payload := "data:;base64," + base64.StdEncoding.EncodeToString([]byte{1})

	img, err := DecodeImage(payload)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIME)
}

func TestDecodeImage_Empty(t *testing.T) {
	img, err := DecodeImage("")
	assert.NoError(t, err)
	assert.Nil(t, img)

	img, err = DecodeImage("   ")
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestDecodeImage_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"data URI without comma", "data:image/png;base64"},
		{"data URI without base64 marker", "data:image/png,abc"},
		{"data URI with bad payload", "data:image/png;base64,%%%"},
		{"data URI with empty payload", "data:image/png;base64,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodeImage(tc.payload)
			assert.Error(t, err)
			assert.Nil(t, img)
		})
	}
}

func TestChatRequestValidate_FieldOrder(t *testing.T) {
	req := &ChatRequest{}
	assert.ErrorContains(t, req.Validate(), "message")

	req.Message = "hi"
	assert.ErrorContains(t, req.Validate(), "assetId")

	req.AssetID = "asset-1"
	assert.ErrorContains(t, req.Validate(), "pin")

	req.PIN = "1234"
	assert.NoError(t, req.Validate())
}

func TestChatRequestValidate_OversizedMessage(t *testing.T) {
	req := &ChatRequest{
		Message: string(make([]byte, MaxMessageContentBytes+1)),
		AssetID: "asset-1",
		PIN:     "1234",
	}
	assert.ErrorContains(t, req.Validate(), "exceeds")
}
