package gateway

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	lb "github.com/liquidation-bot/liquidation-bot"
)

// Signer hands the Gateway a fully-formed *bind.TransactOpts for the next
// transaction it needs to sign. The Gateway never constructs key material
// itself (spec §1 non-goal: key management is an external collaborator's
// job) — cmd/main.go builds a Signer from either a decrypted private key or
// a mnemonic and passes it in.
type Signer interface {
	// Address returns the account this Signer signs for.
	Address() lb.Address
	// TransactOpts returns transaction options bound to ctx, suitable for a
	// single contractclient.Send call. Implementations may return a fresh
	// value each call (e.g. to pick up a new nonce) or a shared one.
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}
