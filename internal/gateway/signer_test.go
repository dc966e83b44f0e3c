package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMnemonic = "test test test test test test test test test test test junk"

func TestNewPrivateKeySigner(t *testing.T) {
	signer, err := NewPrivateKeySigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 1)
	require.NoError(t, err)
	require.NotEqual(t, "0x0000000000000000000000000000000000000000", signer.Address().String())

	opts, err := signer.TransactOpts(context.Background())
	require.NoError(t, err)
	require.Equal(t, signer.Address().Common(), opts.From)
}

func TestNewPrivateKeySigner_InvalidHex(t *testing.T) {
	_, err := NewPrivateKeySigner("not-hex", 1)
	require.Error(t, err)
}

func TestNewMnemonicSigner_InvalidChecksum(t *testing.T) {
	_, err := NewMnemonicSigner("not a valid bip39 mnemonic at all no sir", 0, 1)
	require.Error(t, err)
}

func TestNewMnemonicSigner_Deterministic(t *testing.T) {
	a, err := NewMnemonicSigner(testMnemonic, 0, 1)
	require.NoError(t, err)
	b, err := NewMnemonicSigner(testMnemonic, 0, 1)
	require.NoError(t, err)

	require.True(t, a.Address().Equal(b.Address()))
}

func TestNewMnemonicSigner_DistinctAccounts(t *testing.T) {
	account0, err := NewMnemonicSigner(testMnemonic, 0, 1)
	require.NoError(t, err)
	account1, err := NewMnemonicSigner(testMnemonic, 1, 1)
	require.NoError(t, err)

	require.False(t, account0.Address().Equal(account1.Address()))
}

func TestNewMnemonicSigner_AccountAboveConfigRangeStillDerives(t *testing.T) {
	// account values up to 2^31-1 are all still valid hardened indices;
	// only SignerConfig.Validate bounds this to [0, 199] for operational
	// sanity, not the derivation itself.
	_, err := NewMnemonicSigner(testMnemonic, 1<<30, 1)
	require.NoError(t, err)
}
