// AngelaMos | 2026
// invite_test.go

package credit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCode_Format(t *testing.T) {
	code := GenerateInviteCode(12345)

	require.True(t, strings.HasPrefix(code, "INV"))

	for _, c := range code[3:] {
		assert.Contains(t, base62Alphabet, string(c))
	}

	// id segment plus two fixed three-char segments
	assert.GreaterOrEqual(t, len(code), 3+1+3+3)
}

func TestGenerateInviteCode_DistinctUsersDistinctCodes(t *testing.T) {
	seen := map[string]bool{}
	for id := int64(1); id <= 100; id++ {
		code := GenerateInviteCode(id)
		assert.False(t, seen[code], "code collision for user %d", id)
		seen[code] = true
	}
}

func TestEncodeBase62(t *testing.T) {
	assert.Equal(t, "0", encodeBase62(0, 0))
	assert.Equal(t, "1", encodeBase62(1, 0))
	assert.Equal(t, "10", encodeBase62(62, 0))
	assert.Equal(t, "z", encodeBase62(61, 0))
	assert.Equal(t, "00z", encodeBase62(61, 3))
	assert.Equal(t, "zzz", encodeBase62(base62Cube-1, 3))
}
