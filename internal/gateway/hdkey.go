package gateway

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// deriveHardenedKey walks a hardened-only BIP32 chain from a BIP39 seed to
// produce the ECDSA key for m/44'/60'/0'/0'/{account}'. It intentionally
// stops short of full BIP44 (whose last two levels are non-hardened) to
// avoid pulling in a public-key point-addition implementation for a single
// derived account — this bot only ever needs one signing key per process.
func deriveHardenedKey(seed []byte, account uint32) (*ecdsa.PrivateKey, error) {
	key, chainCode := masterKey(seed)

	for _, index := range []uint32{44, 60, 0, 0, account} {
		var err error
		key, chainCode, err = hardenedChild(key, chainCode, index)
		if err != nil {
			return nil, fmt.Errorf("derive index %d': %w", index, err)
		}
	}

	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("derived key is not a valid secp256k1 scalar: %w", err)
	}
	return priv, nil
}

func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// hardenedChild computes I = HMAC-SHA512(chainCode, 0x00 || parentKey || ser32(index | 2^31))
// and returns (IL + parentKey mod n, IR), the standard BIP32 hardened child
// derivation.
func hardenedChild(parentKey, chainCode []byte, index uint32) (childKey, childChainCode []byte, err error) {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, parentKey...)

	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], index|0x80000000)
	data = append(data, idxBuf[:]...)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	il, ir := sum[:32], sum[32:]

	var ilScalar, parentScalar secp256k1.ModNScalar
	if overflow := ilScalar.SetByteSlice(il); overflow {
		return nil, nil, fmt.Errorf("invalid child: IL out of range")
	}
	if overflow := parentScalar.SetByteSlice(parentKey); overflow {
		return nil, nil, fmt.Errorf("invalid parent key: out of range")
	}

	childScalar := new(secp256k1.ModNScalar).Add2(&ilScalar, &parentScalar)
	if childScalar.IsZero() {
		return nil, nil, fmt.Errorf("invalid child: resulting scalar is zero")
	}

	childBytes := childScalar.Bytes()
	return childBytes[:], ir, nil
}
