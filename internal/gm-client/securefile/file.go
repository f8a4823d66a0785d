// Package securefile reads and writes password-encrypted JSON files.
// Keys are derived with Argon2id and sealed with XChaCha20-Poly1305; writes are atomic.
package securefile

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidPasswordOrCorrupt is deliberately generic.
var ErrInvalidPasswordOrCorrupt = errors.New("invalid password or corrupted file")

const (
	envelopeVersion = 2
	modePassword    = "password"
)

// Envelope is the on-disk layout.
type Envelope struct {
	Version int    `json:"version"`
	Mode    string `json:"mode"`

	ArgonTime    uint32 `json:"argon_time"`
	ArgonMemory  uint32 `json:"argon_memory_kib"`
	ArgonThreads uint8  `json:"argon_threads"`
	ArgonKeyLen  uint32 `json:"argon_key_len"`
	SaltB64      string `json:"salt_b64"`

	NonceB64 string `json:"nonce_b64"`
	CTB64    string `json:"ct_b64"`
}

type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

var DefaultKDF = KDFParams{Time: 2, Memory: 64 * 1024, Threads: 1, KeyLen: 32}

type Options struct {
	KDF           KDFParams
	FilePerm      os.FileMode
	DirectoryPerm os.FileMode
	// AAD binds the ciphertext to a purpose; it must be identical for read and write.
	AAD []byte
}

func (o Options) withDefaults() Options {
	if o.KDF.KeyLen == 0 {
		o.KDF = DefaultKDF
	}
	if o.FilePerm == 0 {
		o.FilePerm = 0o600
	}
	if o.DirectoryPerm == 0 {
		o.DirectoryPerm = 0o700
	}
	return o
}

func WriteEncryptedJSON[T any](path string, v T, password []byte, opt Options) error {
	o := opt.withDefaults()
	if err := checkPassword(password); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), o.DirectoryPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	defer zeroBytes(plain)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "rand salt")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "rand nonce")
	}

	key := argon2.IDKey(password, salt, o.KDF.Time, o.KDF.Memory, o.KDF.Threads, o.KDF.KeyLen)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return errors.Wrap(err, "aead")
	}

	env := Envelope{
		Version:      envelopeVersion,
		Mode:         modePassword,
		ArgonTime:    o.KDF.Time,
		ArgonMemory:  o.KDF.Memory,
		ArgonThreads: o.KDF.Threads,
		ArgonKeyLen:  o.KDF.KeyLen,
		SaltB64:      base64.StdEncoding.EncodeToString(salt),
		NonceB64:     base64.StdEncoding.EncodeToString(nonce),
		CTB64:        base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plain, o.AAD)),
	}

	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	return AtomicWriteFile(path, b, o.FilePerm)
}

// ReadEncryptedJSON returns an error satisfying errors.Is(err, os.ErrNotExist)
// when the file is missing.
func ReadEncryptedJSON[T any](path string, password []byte, opt Options) (T, error) {
	var zero T
	o := opt.withDefaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return zero, errors.Wrap(err, "read file")
	}
	if err := checkPassword(password); err != nil {
		return zero, err
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return zero, errors.Wrap(err, "unmarshal envelope")
	}
	if env.Version != envelopeVersion {
		return zero, errors.Newf("unsupported file version: %d", env.Version)
	}
	if !strings.EqualFold(env.Mode, modePassword) {
		return zero, errors.Newf("unsupported mode: %q", env.Mode)
	}

	salt, err := base64.StdEncoding.DecodeString(env.SaltB64)
	if err != nil {
		return zero, errors.Wrap(err, "decode salt")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return zero, ErrInvalidPasswordOrCorrupt
	}
	ct, err := base64.StdEncoding.DecodeString(env.CTB64)
	if err != nil {
		return zero, errors.Wrap(err, "decode ciphertext")
	}

	key := argon2.IDKey(password, salt, env.ArgonTime, env.ArgonMemory, env.ArgonThreads, env.ArgonKeyLen)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return zero, ErrInvalidPasswordOrCorrupt
	}
	plain, err := aead.Open(nil, nonce, ct, o.AAD)
	if err != nil {
		return zero, ErrInvalidPasswordOrCorrupt
	}
	defer zeroBytes(plain)

	var out T
	if err := json.Unmarshal(plain, &out); err != nil {
		return zero, errors.Wrap(err, "unmarshal json")
	}
	return out, nil
}

func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

// ConfigPathCandidates lists <home>/.config/<app>/<env?>/<filename> locations in
// priority order. GM_ENV selects an optional local/ or develop/ subfolder.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	if app == "" || filename == "" {
		return nil, errors.New("app and filename must not be empty")
	}
	envFolder, err := EnvFolder()
	if err != nil {
		return nil, err
	}

	var paths []string
	seen := map[string]bool{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	under := func(base string) string {
		dir := filepath.Join(base, app)
		if envFolder != "" {
			dir = filepath.Join(dir, envFolder)
		}
		return filepath.Join(dir, filename)
	}

	if realHome := os.Getenv("SNAP_REAL_HOME"); realHome != "" {
		add(under(filepath.Join(realHome, ".config")))
	}
	if home := os.Getenv("HOME"); home != "" {
		add(under(filepath.Join(home, ".config")))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		add(under(dir))
	} else if len(paths) == 0 {
		return nil, errors.Wrap(err, "user config dir")
	}
	return paths, nil
}

func EnvFolder() (string, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("GM_ENV")))
	switch raw {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", errors.Newf("invalid GM_ENV %q (allowed: local, develop, empty)", raw)
	}
}

func checkPassword(password []byte) error {
	if len(password) == 0 {
		return errors.New("securefile: empty password")
	}
	for _, v := range password {
		if v != 0 {
			return nil
		}
	}
	return errors.New("securefile: zeroed password buffer")
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
