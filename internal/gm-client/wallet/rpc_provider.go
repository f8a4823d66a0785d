package wallet

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCProvider forwards requests to an external wallet over JSON-RPC.
type RPCProvider struct {
	client *rpc.Client
}

func DialRPCProvider(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet provider %q", url)
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Request(ctx context.Context, method string, params []any, result any) error {
	err := p.client.CallContext(ctx, result, method, params...)
	if err == nil {
		return nil
	}

	var coded rpc.Error
	if errors.As(err, &coded) {
		perr := &ProviderError{Code: coded.ErrorCode(), Message: coded.Error()}
		var withData rpc.DataError
		if errors.As(err, &withData) {
			perr.Data = withData.ErrorData()
		}
		return perr
	}
	return errors.Wrapf(err, "wallet %s", method)
}

func (p *RPCProvider) Close() {
	p.client.Close()
}
