package protocol

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflineUUID returns the name-based (version 3) UUID the game derives for
// offline-mode players: MD5 of "OfflinePlayer:<name>" with no namespace.
//
// Postcondition: The same name always yields the same UUID.
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	var u uuid.UUID
	copy(u[:], sum[:])
	u[6] = u[6]&0x0f | 0x30
	u[8] = u[8]&0x3f | 0x80
	return u
}
