// Package uuid generates the time-ordered identifiers used as primary keys
// and task ids.
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 based on the current timestamp.
//
// Layout: 48 bits of Unix milliseconds, 4 version bits (0111), 12 random bits,
// 2 variant bits (10), 62 random bits.
func New() string {
	var u googleuuid.UUID

	binary.BigEndian.PutUint64(u[0:8], uint64(time.Now().UnixMilli())<<16)

	if _, err := rand.Read(u[6:]); err != nil {
		return googleuuid.New().String()
	}

	u[6] = (u[6] & 0x0f) | 0x70
	u[8] = (u[8] & 0x3f) | 0x80

	return u.String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
