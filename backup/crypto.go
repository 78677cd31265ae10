package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"crypto/subtle"
	"errors"
	"fmt"

	"libmvt/core"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// Key Derivation and Decryption
// =============================================================================

const keyLength = 32

var (
	errPadding      = errors.New("invalid PKCS#5 padding")
	errBlockSize    = errors.New("ciphertext is not a multiple of the block size")
	errTruncatedKey = errors.New("truncated master key blob")
)

// MasterKey is the payload key unwrapped from the header
type MasterKey struct {
	Key []byte
	IV  []byte
}

// DeriveMasterKey unwraps the master key with password. A missing password or
// a failed checksum is InvalidPassword. So is bad padding or a malformed
// layout after unwrapping the master key blob: the blob is decrypted with a
// key derived only from the password, so a wrong password and a corrupted
// blob cannot be told apart and both report InvalidPassword, never
// CryptoError. CryptoError is left for cipher failures such as a blob that
// is not a whole number of blocks.
func DeriveMasterKey(h *Header, password string) (*MasterKey, error) {
	if password == "" {
		return nil, core.NewBackupError(core.KindInvalidPassword, "password required", nil)
	}

	userKey := pbkdf2.Key([]byte(password), h.UserSalt, h.Rounds, keyLength, sha1.New)

	blob, err := decryptCBC(userKey, h.UserIV, h.MasterKeyBlob)
	if errors.Is(err, errPadding) {
		// The user key comes straight from the password, so bad padding here
		// means the password is wrong.
		return nil, core.NewBackupError(core.KindInvalidPassword, "unwrap master key", err)
	}
	if err != nil {
		return nil, core.NewBackupError(core.KindCrypto, "unwrap master key", err)
	}

	iv, key, checksum, err := splitKeyBlob(blob)
	if err != nil {
		return nil, core.NewBackupError(core.KindInvalidPassword, "unwrap master key", err)
	}

	expected := pbkdf2.Key(ChecksumInput(key, h.Version), h.ChecksumSalt, h.Rounds, keyLength, sha1.New)
	if subtle.ConstantTimeCompare(expected, checksum) != 1 {
		return nil, core.NewBackupError(core.KindInvalidPassword, "master key checksum mismatch", nil)
	}

	return &MasterKey{Key: key, IV: iv}, nil
}

// Decrypt decrypts a container payload with the master key
func (mk *MasterKey) Decrypt(payload []byte) ([]byte, error) {
	plain, err := decryptCBC(mk.Key, mk.IV, payload)
	if err != nil {
		return nil, core.NewBackupError(core.KindCrypto, "decrypt payload", err)
	}
	return plain, nil
}

// ChecksumInput returns the bytes the master key checksum is computed over.
// Version 1 containers hash the raw key. Later versions hash the key as the
// reference implementation saw it after widening each byte to a char: bytes
// of 0x80 and above become a three byte sequence.
func ChecksumInput(key []byte, version int) []byte {
	if version <= 1 {
		return key
	}
	out := make([]byte, 0, len(key)*3)
	for _, b := range key {
		if b < 0x80 {
			out = append(out, b)
			continue
		}
		out = append(out, 0xef, 0xbc|((b>>6)&0x3f), 0x80|(b&0x3f))
	}
	return out
}

// splitKeyBlob reads the length-prefixed IV, key and checksum
func splitKeyBlob(blob []byte) (iv, key, checksum []byte, err error) {
	r := bytes.NewReader(blob)
	field := func() ([]byte, error) {
		n, err := r.ReadByte()
		if err != nil {
			return nil, errTruncatedKey
		}
		out := make([]byte, n)
		if read, _ := r.Read(out); read != int(n) {
			return nil, errTruncatedKey
		}
		return out, nil
	}

	if iv, err = field(); err != nil {
		return nil, nil, nil, err
	}
	if key, err = field(); err != nil {
		return nil, nil, nil, err
	}
	if checksum, err = field(); err != nil {
		return nil, nil, nil, err
	}
	if len(key) != keyLength || len(iv) != aes.BlockSize {
		return nil, nil, nil, fmt.Errorf("%w: key %d bytes, iv %d bytes", errTruncatedKey, len(key), len(iv))
	}
	return iv, key, checksum, nil
}

// decryptCBC decrypts AES-CBC data and strips PKCS#5 padding
func decryptCBC(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, errBlockSize
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs5Unpad(out, block.BlockSize())
}

func pkcs5Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}
