package blobkey_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/dmodel/portal/internal/blobkey"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "lamp.jpg", blobkey.Sanitize("lamp.jpg"))
	assert.Equal(t, "my_lamp__v2_.jpg", blobkey.Sanitize("my lamp (v2).jpg"))
	assert.Equal(t, "caf_.png", blobkey.Sanitize("café.png"))
	assert.Equal(t, "a-b.c-d", blobkey.Sanitize("a-b.c-d"))
	assert.Equal(t, "___", blobkey.Sanitize("汉字/"))
}

func TestProductKey(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	key := blobkey.Product("123456", ts, "desk lamp.jpg")
	assert.Equal(t, "products/123456-1700000000000-desk_lamp.jpg", key)
}

func TestModelKey(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	assert.Equal(t, "1700000000000-chair.glb", blobkey.ModelFileName(ts, "chair.glb"))
	assert.Equal(t, "models/1700000000000-chair.glb", blobkey.Model(ts, "chair.glb"))
}

func TestContentHash(t *testing.T) {
	data := []byte("hello world")
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), blobkey.ContentHash(data))
}
