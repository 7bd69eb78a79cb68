package publish_test

import (
	"testing"
	"time"

	"github.com/notedcloud/noted/pkg/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerifyToken(t *testing.T) {
	token, err := publish.MintToken("s3cret", "alice", time.Hour, time.Now())
	require.NoError(t, err)

	subject, err := publish.VerifyToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	_, err = publish.VerifyToken("other", token)
	assert.ErrorIs(t, err, publish.ErrUnauthorized)
}

func TestVerifyExpiredToken(t *testing.T) {
	token, err := publish.MintToken("s3cret", "alice", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = publish.VerifyToken("s3cret", token)
	assert.ErrorIs(t, err, publish.ErrUnauthorized)
}

func TestMintTokenNeedsSecret(t *testing.T) {
	_, err := publish.MintToken("", "alice", 0, time.Now())
	assert.Error(t, err)
}
