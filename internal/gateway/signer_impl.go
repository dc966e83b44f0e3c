package gateway

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	lb "github.com/liquidation-bot/liquidation-bot"
)

// PrivateKeySigner signs with a single raw ECDSA key held in memory for the
// lifetime of the process, the way cmd/main.go's util.Decrypt result feeds
// straight into a transactor in the teacher repo.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address lb.Address
	chainID int64
}

// NewPrivateKeySigner builds a Signer from a decrypted hex private key.
func NewPrivateKeySigner(hexKey string, chainID int64) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("private key signer: %w", err)
	}
	return &PrivateKeySigner{
		key:     key,
		address: lb.NewAddress(crypto.PubkeyToAddress(key.PublicKey)),
		chainID: chainID,
	}, nil
}

func (s *PrivateKeySigner) Address() lb.Address { return s.address }

func (s *PrivateKeySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, newChainID(s.chainID))
	if err != nil {
		return nil, fmt.Errorf("private key transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// MnemonicSigner derives its signing key once, at construction, from a BIP39
// mnemonic and account number (spec §1: the pipeline never re-derives keys
// on the hot path).
type MnemonicSigner struct {
	key     *ecdsa.PrivateKey
	address lb.Address
	chainID int64
}

// NewMnemonicSigner validates mnemonic, derives the key at the all-hardened
// path m/44'/60'/0'/0'/{account}', and returns a ready Signer. The last two
// levels are hardened, so the address differs from the one a BIP44 wallet
// derives at m/44'/60'/0'/0/{account}.
func NewMnemonicSigner(mnemonic string, account uint32, chainID int64) (*MnemonicSigner, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("mnemonic signer: invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := deriveHardenedKey(seed, account)
	if err != nil {
		return nil, fmt.Errorf("mnemonic signer: %w", err)
	}

	return &MnemonicSigner{
		key:     key,
		address: lb.NewAddress(crypto.PubkeyToAddress(key.PublicKey)),
		chainID: chainID,
	}, nil
}

func (s *MnemonicSigner) Address() lb.Address { return s.address }

func (s *MnemonicSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, newChainID(s.chainID))
	if err != nil {
		return nil, fmt.Errorf("mnemonic transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func newChainID(id int64) *big.Int {
	return big.NewInt(id)
}
