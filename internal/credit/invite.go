// AngelaMos | 2026
// invite.go

package credit

import (
	"math/rand/v2"
	"strings"
	"time"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// base62Cube is 62^3, the modulus that keeps the timestamp and random
// segments at exactly three encoded characters.
const base62Cube = 238328

// GenerateInviteCode derives a shareable code from the user id plus a
// timestamp and random suffix. The id segment makes codes collision-free
// across users; the suffixes keep them unguessable enough for a referral
// link. Codes are never regenerated once assigned.
func GenerateInviteCode(userID int64) string {
	var sb strings.Builder
	sb.WriteString("INV")
	sb.WriteString(encodeBase62(userID, 0))
	sb.WriteString(encodeBase62(time.Now().Unix()%base62Cube, 3))
	//nolint:gosec // G404: invite codes are not security tokens
	sb.WriteString(encodeBase62(rand.Int64N(base62Cube), 3))
	return sb.String()
}

func encodeBase62(n int64, minWidth int) string {
	if n < 0 {
		n = -n
	}

	var buf [11]byte
	i := len(buf)
	for {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
		if n == 0 {
			break
		}
	}

	for len(buf)-i < minWidth {
		i--
		buf[i] = '0'
	}

	return string(buf[i:])
}
