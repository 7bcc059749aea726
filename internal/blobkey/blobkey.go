// Package blobkey builds object-store keys for submission blobs and
// computes the content hash attached to each stored object.
package blobkey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// Sanitize replaces every character outside [A-Za-z0-9.-] with an underscore.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Product returns the object key for a product image:
// products/{token}-{unixMillis}-{sanitizedName}.
func Product(token string, ts time.Time, originalName string) string {
	return fmt.Sprintf("products/%s-%d-%s", token, ts.UnixMilli(), Sanitize(originalName))
}

// ModelFileName returns the stored file name for a 3D model:
// {unixMillis}-{sanitizedName}. This is also what the metadata record
// carries as fileName.
func ModelFileName(ts time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), Sanitize(originalName))
}

// Model returns the object key for a 3D model blob, the stored file name
// under the models/ namespace.
func Model(ts time.Time, originalName string) string {
	return "models/" + ModelFileName(ts, originalName)
}

// ContentHash computes the SHA256 hash of data as a hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
