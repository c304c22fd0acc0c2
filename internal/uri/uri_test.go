package uri_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocqls/rocqls/internal/uri"
)

func TestParseRoundTrip(t *testing.T) {
	u, err := uri.Parse("file:///home/alice/proof.v")
	require.NoError(t, err)
	assert.False(t, u.IsZero())
	assert.Equal(t, "file:///home/alice/proof.v", u.String())
}

func TestParseRejectsNonFileScheme(t *testing.T) {
	_, err := uri.Parse("untitled:Untitled-1")
	assert.Error(t, err)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := uri.Parse("://not a uri")
	assert.Error(t, err)
}

func TestParseEquality(t *testing.T) {
	a, err := uri.Parse("file:///home/alice/proof.v")
	require.NoError(t, err)
	b, err := uri.Parse("file:///home/alice/proof.v")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZeroURI(t *testing.T) {
	var u uri.URI
	assert.True(t, u.IsZero())
}
