package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

const (
	saltLength  = 16
	nonceLength = 24

	// scrypt parameters recommended for interactive use
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// sealer encrypts persisted values with a key derived from a user secret.
type sealer struct {
	key [32]byte
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "[newSalt] read random")
	}
	return salt, nil
}

func newSealer(secret string, salt []byte) (*sealer, error) {
	derived, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, errors.Wrap(err, "[newSealer] derive key")
	}
	s := &sealer{}
	copy(s.key[:], derived)
	return s, nil
}

func (s *sealer) seal(plain string) (string, error) {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errors.Wrap(err, "[seal] read nonce")
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *sealer) open(sealed string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceLength+secretbox.Overhead {
		return "", apperrors.ErrStoreSealed
	}
	var nonce [nonceLength]byte
	copy(nonce[:], box[:nonceLength])
	plain, ok := secretbox.Open(nil, box[nonceLength:], &nonce, &s.key)
	if !ok {
		return "", apperrors.ErrStoreSealed
	}
	return string(plain), nil
}
