// Package contracts declares the static contract interfaces the client talks to.
// The ABIs are parsed and checked against the expected signatures at package init,
// so a schema mismatch fails at startup rather than at call time.
package contracts

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const (
	MethodSendGM            = "sendGM"
	MethodTotalGMs          = "totalGMs"
	MethodGetUserStats      = "getUserStats"
	MethodGetRecentMessages = "getRecentMessages"
	MethodGetMessageCount   = "getMessageCount"
	MethodBalanceOf         = "balanceOf"
)

const gmABI = `[
	{"type":"function","name":"sendGM","stateMutability":"nonpayable","inputs":[{"name":"message","type":"string"}],"outputs":[]},
	{"type":"function","name":"totalGMs","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserStats","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"count","type":"uint256"},{"name":"streak","type":"uint256"},{"name":"lastTime","type":"uint256"}]},
	{"type":"function","name":"getRecentMessages","stateMutability":"view","inputs":[{"name":"count","type":"uint256"}],"outputs":[{"name":"senders","type":"address[]"},{"name":"messageTexts","type":"string[]"},{"name":"timestamps","type":"uint256[]"},{"name":"counts","type":"uint256[]"}]},
	{"type":"function","name":"getMessageCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const tip20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]}
]`

var ErrSchemaMismatch = errors.New("contract abi does not match the expected schema")

// Interface is a parsed, validated contract ABI.
type Interface struct {
	Name string
	ABI  abi.ABI
}

type signature struct {
	sig     string
	outputs []string
	view    bool
}

var (
	GM = mustParse("TempoGM", gmABI, map[string]signature{
		MethodSendGM:            {sig: "sendGM(string)"},
		MethodTotalGMs:          {sig: "totalGMs()", outputs: []string{"uint256"}, view: true},
		MethodGetUserStats:      {sig: "getUserStats(address)", outputs: []string{"uint256", "uint256", "uint256"}, view: true},
		MethodGetRecentMessages: {sig: "getRecentMessages(uint256)", outputs: []string{"address[]", "string[]", "uint256[]", "uint256[]"}, view: true},
		MethodGetMessageCount:   {sig: "getMessageCount()", outputs: []string{"uint256"}, view: true},
	})

	TIP20 = mustParse("TIP20", tip20ABI, map[string]signature{
		MethodBalanceOf: {sig: "balanceOf(address)", outputs: []string{"uint256"}, view: true},
	})
)

func mustParse(name, raw string, want map[string]signature) Interface {
	iface, err := parse(name, raw, want)
	if err != nil {
		panic(err)
	}
	return iface
}

func parse(name, raw string, want map[string]signature) (Interface, error) {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return Interface{}, errors.Wrapf(err, "contracts: parse %s abi", name)
	}

	for methodName, s := range want {
		m, ok := parsed.Methods[methodName]
		if !ok {
			return Interface{}, errors.Wrapf(ErrSchemaMismatch, "contracts: %s is missing %s", name, methodName)
		}
		if m.Sig != s.sig {
			return Interface{}, errors.Wrapf(ErrSchemaMismatch, "contracts: %s.%s signature %s, want %s", name, methodName, m.Sig, s.sig)
		}
		if m.IsConstant() != s.view {
			return Interface{}, errors.Wrapf(ErrSchemaMismatch, "contracts: %s.%s view=%t, want %t", name, methodName, m.IsConstant(), s.view)
		}
		if len(m.Outputs) != len(s.outputs) {
			return Interface{}, errors.Wrapf(ErrSchemaMismatch, "contracts: %s.%s has %d outputs, want %d", name, methodName, len(m.Outputs), len(s.outputs))
		}
		for i, out := range m.Outputs {
			if out.Type.String() != s.outputs[i] {
				return Interface{}, errors.Wrapf(ErrSchemaMismatch, "contracts: %s.%s output %d is %s, want %s", name, methodName, i, out.Type.String(), s.outputs[i])
			}
		}
	}

	return Interface{Name: name, ABI: parsed}, nil
}

// Pack encodes calldata for method.
func (i Interface) Pack(method string, args ...any) ([]byte, error) {
	data, err := i.ABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "contracts: pack %s.%s", i.Name, method)
	}
	return data, nil
}

// PackSendGM encodes the sendGM(message) write.
func PackSendGM(message string) ([]byte, error) {
	return GM.Pack(MethodSendGM, message)
}

// Bind returns a read-only bound contract at address. Writes go through the
// wallet provider, never through this binding.
func (i Interface) Bind(address common.Address, caller bind.ContractCaller) *bind.BoundContract {
	return bind.NewBoundContract(address, i.ABI, caller, nil, nil)
}
