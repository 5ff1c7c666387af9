package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeMatchWildcards(t *testing.T) {
	assert.True(t, likeMatch("hello", "h%"))
	assert.True(t, likeMatch("hello", "h_llo"))
	assert.False(t, likeMatch("hello", "h_lo"))
	assert.True(t, likeMatch("", "%"))
	assert.False(t, likeMatch("x", ""))
}

func TestSimilarToMatch(t *testing.T) {
	ok, err := similarToMatch("abc123", "abc%")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = similarToMatch("abc", "a_c")
	assert.NoError(t, err)
	assert.True(t, ok)

	_, err = similarToMatch("abc", "a(")
	assert.Error(t, err, "an unbalanced group is an invalid pattern")
}
