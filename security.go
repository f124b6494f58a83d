package httpcache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// scryptN is the CPU/memory cost parameter for scrypt key derivation
	scryptN = 32768
	// scryptR is the block size parameter for scrypt
	scryptR = 8
	// scryptP is the parallelization parameter for scrypt
	scryptP = 1
	// keyLength is the desired key length for AES-256
	keyLength = 32
	// nonceSize is the size of the GCM nonce
	nonceSize = 12
)

// hashKey converts a cache key to its SHA-256 hash representation. Every
// SecureCacheStorage applies this before delegating to its backend, so
// origin URLs never appear verbatim in backend key spaces.
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// initEncryption derives an AES-256-GCM cipher from passphrase using
// scrypt. The salt is fixed: callers that need per-deployment salts should
// fold one into the passphrase itself.
func initEncryption(passphrase string) (cipher.AEAD, error) {
	salt := sha256.Sum256([]byte("httpcache-entry-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("httpcache: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("httpcache: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("httpcache: create GCM: %w", err)
	}
	return gcm, nil
}

// encrypt encrypts data using AES-256-GCM, prepending a random nonce.
func encrypt(gcm cipher.AEAD, data []byte) ([]byte, error) {
	if gcm == nil {
		return data, nil
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("httpcache: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// decrypt reverses encrypt, expecting the nonce prepended to ciphertext.
func decrypt(gcm cipher.AEAD, data []byte) ([]byte, error) {
	if gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("httpcache: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("httpcache: decrypt: %w", err)
	}
	return plaintext, nil
}

// ByteCacheStorage is the raw []byte-oriented backend every store/ adapter
// implements directly (LevelDB, Redis, Memcache, ...). SecureCacheStorage
// adapts one of these into a full CacheStorage.
type ByteCacheStorage interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Cache is an alias of ByteCacheStorage kept for the store backend adapters
// (redis, memcache, mongodb, ...), which predate the CacheStorage/
// ByteCacheStorage split and were written against this name.
type Cache = ByteCacheStorage

// SecureCacheStorage adapts a ByteCacheStorage into a CacheStorage, hashing
// every key with SHA-256 before delegating and, when a passphrase is
// configured, encrypting the serialized entry with AES-256-GCM (key derived
// via scrypt). Key hashing is unconditional; encryption is opt-in.
type SecureCacheStorage struct {
	Backend    ByteCacheStorage
	Serializer HttpCacheEntrySerializer
	gcm        cipher.AEAD
}

// NewSecureCacheStorage wraps backend with key hashing always enabled.
// passphrase may be empty, in which case entries are stored in plaintext
// (keys are still hashed). serializer defaults to GobEntrySerializer if nil.
func NewSecureCacheStorage(backend ByteCacheStorage, serializer HttpCacheEntrySerializer, passphrase string) (*SecureCacheStorage, error) {
	if serializer == nil {
		serializer = GobEntrySerializer{}
	}
	s := &SecureCacheStorage{Backend: backend, Serializer: serializer}
	if passphrase != "" {
		gcm, err := initEncryption(passphrase)
		if err != nil {
			return nil, err
		}
		s.gcm = gcm
	}
	return s, nil
}

// IsEncryptionEnabled reports whether s encrypts entries at rest.
func (s *SecureCacheStorage) IsEncryptionEnabled() bool { return s.gcm != nil }

func (s *SecureCacheStorage) GetEntry(ctx context.Context, key string) (*CacheEntry, bool, error) {
	data, ok, err := s.Backend.Get(ctx, hashKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	entry, err := s.decode(data)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

func (s *SecureCacheStorage) PutEntry(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := s.encode(entry)
	if err != nil {
		return err
	}
	return s.Backend.Set(ctx, hashKey(key), data)
}

func (s *SecureCacheStorage) RemoveEntry(ctx context.Context, key string) error {
	return s.Backend.Delete(ctx, hashKey(key))
}

// UpdateEntry is not atomic against concurrent writers when Backend is a
// plain get/set byte store: it performs a get-modify-put sequence. Backends
// that can offer a real compare-and-swap should implement CacheStorage
// directly instead of going through SecureCacheStorage.
func (s *SecureCacheStorage) UpdateEntry(ctx context.Context, key string, update func(*CacheEntry) (*CacheEntry, error)) error {
	existing, _, err := s.GetEntry(ctx, key)
	if err != nil {
		return err
	}
	next, err := update(existing)
	if err != nil {
		return err
	}
	if next == nil {
		return s.RemoveEntry(ctx, key)
	}
	return s.PutEntry(ctx, key, next)
}

func (s *SecureCacheStorage) encode(entry *CacheEntry) ([]byte, error) {
	data, err := s.Serializer.Serialize(entry)
	if err != nil {
		return nil, err
	}
	if s.gcm == nil {
		return data, nil
	}
	return encrypt(s.gcm, data)
}

func (s *SecureCacheStorage) decode(data []byte) (*CacheEntry, error) {
	if s.gcm != nil {
		plain, err := decrypt(s.gcm, data)
		if err != nil {
			return nil, err
		}
		data = plain
	}
	return s.Serializer.Deserialize(data)
}
