// Package token issues the caller-facing tracking identifier for a
// product submission.
package token

import (
	"math/rand/v2"
	"strconv"
)

// Generate returns a random 6-digit token in [100000, 999999]. The leading
// digit is never zero. Tokens are not checked for uniqueness against
// existing submissions; collisions are possible and accepted.
func Generate() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}
