package userwallet

import (
	"context"
	"crypto/ecdsa"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/securefile"
)

type Wallet struct {
	Version    int    `json:"version"`
	AddressHex string `json:"address"`
	PrivKeyHex string `json:"priv_key_hex"`
	CreatedAt  string `json:"created_at,omitempty"` // RFC3339
}

type Store struct {
	Path string
	Opt  securefile.Options
}

func (w *Wallet) Address() common.Address {
	return common.HexToAddress(w.AddressHex)
}

func (w *Wallet) PrivateKey() (*ecdsa.PrivateKey, error) {
	b, err := hexutil.Decode(w.PrivKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "decode private key")
	}
	if len(b) != 32 {
		return nil, errors.Newf("private key must be 32 bytes, got %d", len(b))
	}
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, errors.Wrap(err, "to ecdsa")
	}
	if crypto.PubkeyToAddress(key.PublicKey) != w.Address() {
		return nil, errors.New("stored address does not match private key")
	}
	return key, nil
}

// SignHash signs a 32 byte digest; V is 0 or 1.
func (w *Wallet) SignHash(_ context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, errors.Newf("digest must be 32 bytes, got %d", len(digest))
	}
	key, err := w.PrivateKey()
	if err != nil {
		return nil, err
	}
	return crypto.Sign(digest, key)
}

// NewStore places the wallet at path, or at the canonical config path when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		paths, err := securefile.ConfigPathCandidates(constants.AppName, constants.WalletFile)
		if err != nil {
			return nil, err
		}
		path = paths[0]
	}

	return &Store{
		Path: path,
		Opt: securefile.Options{
			FilePerm:      constants.FilePerm,
			DirectoryPerm: constants.DirectoryPerm,
			AAD:           []byte(constants.AADConstant),
		},
	}, nil
}

// Ensure loads the encrypted wallet or creates and persists a new one if missing.
func (s *Store) Ensure(password []byte) (*Wallet, error) {
	w, err := securefile.ReadEncryptedJSON[Wallet](s.Path, password, s.Opt)
	if err == nil {
		return &w, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load wallet %s", s.Path)
	}

	nw, err := NewRandomWallet()
	if err != nil {
		return nil, err
	}
	if err := securefile.WriteEncryptedJSON(s.Path, *nw, password, s.Opt); err != nil {
		return nil, errors.Wrapf(err, "save wallet %s", s.Path)
	}
	log.Info("created local wallet", "address", nw.AddressHex, "path", s.Path)
	return nw, nil
}

func NewRandomWallet() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return FromKey(key), nil
}

func FromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		Version:    constants.SchemaV1,
		AddressHex: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivKeyHex: hexutil.Encode(crypto.FromECDSA(key)),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
