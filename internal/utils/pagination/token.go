// Package pagination encodes keyset cursors for ledger listings.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// Cursor identifies the last row of a page in (transaction date, created at, id) order.
type Cursor struct {
	TransactionDate time.Time
	CreatedAt       time.Time
	TransactionID   string
}

// EncodeToken creates an opaque token from the last row of a page.
func EncodeToken(c Cursor) string {
	tokenStr := strings.Join([]string{
		c.TransactionDate.UTC().Format(timeFormat),
		c.CreatedAt.UTC().Format(timeFormat),
		c.TransactionID,
	}, "|")
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	txDate, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (transaction date parse): %w", err)
	}
	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}
	return Cursor{TransactionDate: txDate, CreatedAt: createdAt, TransactionID: parts[2]}, nil
}
