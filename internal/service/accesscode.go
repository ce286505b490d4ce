package service

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"
)

const (
	accessCodeLen  = 10
	accessSaltSize = 16
)

var accessEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// AccessCode derives the printed access code of a card from its venue-event,
// its number and salt.  The same inputs always give the same code; issuance
// passes a fresh random salt so codes cannot be guessed from card numbers.
func AccessCode(eventID uint64, number string, salt []byte) string {
	h, _ := blake2b.New256(nil) // nil key never errors
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], eventID)
	h.Write(buf[:])
	h.Write([]byte{0})
	h.Write([]byte(number))
	h.Write([]byte{0})
	h.Write(salt)
	return accessEncoding.EncodeToString(h.Sum(nil))[:accessCodeLen]
}

func newSalt(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	salt := make([]byte, accessSaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, err
	}
	return salt, nil
}
