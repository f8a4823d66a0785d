package chainread

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// WaitForReceipt polls for the receipt of hash until it is mined or ctx ends.
// A mined but reverted transaction is reported as ErrReceipt along with its receipt.
func (r *Reader) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.Mark(errors.Wrapf(ctx.Err(), "await receipt %s", hash.Hex()), ErrReceipt)
		case <-timer.C:
		}

		start := time.Now()
		receipt, err := r.backend.TransactionReceipt(ctx, hash)
		r.observe("eth_getTransactionReceipt", start, err)

		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, errors.Mark(
					errors.Newf("transaction %s reverted in block %v", hash.Hex(), receipt.BlockNumber),
					ErrReceipt)
			}
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			// not mined yet
		case ctx.Err() != nil:
			// reported by the select on the next pass
		default:
			log.Warn("receipt lookup failed; will retry", "hash", hash.Hex(), "error", err)
		}

		timer.Reset(r.pollInterval)
	}
}
