package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	cursor := Cursor{
		TransactionDate: time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC),
		TransactionID:   "0b7c6a52-9a55-4a3e-8f87-1f0c2b0f7e11",
	}

	token := EncodeToken(cursor)
	assert.NotEmpty(t, token)

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, cursor, decoded)
}

func TestEncodeToken_NormalizesToUTC(t *testing.T) {
	local := time.Date(2023, 5, 15, 2, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))

	decoded, err := DecodeToken(EncodeToken(Cursor{TransactionDate: local, CreatedAt: local, TransactionID: "x"}))

	require.NoError(t, err)
	assert.True(t, local.Equal(decoded.TransactionDate))
	assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
}

func TestDecodeTokenError(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	assert.ErrorContains(t, err, "base64 decode")

	twoFields := base64.URLEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|2023-05-15T00:00:00Z"))
	_, err = DecodeToken(twoFields)
	assert.ErrorContains(t, err, "split")

	badDate := base64.URLEncoding.EncodeToString([]byte("notadate|2023-05-15T14:30:45Z|id"))
	_, err = DecodeToken(badDate)
	assert.ErrorContains(t, err, "transaction date parse")
}
