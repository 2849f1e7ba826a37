package tokenmeta

import (
	"context"
	"strings"

	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"
)

// name, symbol and decimals are all optional in ERC-20, so each field is
// fetched and falls back on its own.
const erc20FragmentABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// EthSource reads token metadata from token contracts over an eth RPC
// endpoint, substituting the static fallback per field when a call
// fails or reverts.
type EthSource struct {
	client  *ethclient.Client
	network string
	erc20   abi.ABI
}

func NewEthSource(rawURL, network string) (*EthSource, error) {
	client, err := ethclient.Dial(rawURL)
	if err != nil {
		logger.Errorf("failed to dial eth rpc url %s: err=%v", rawURL, err)
		return nil, err
	}

	parsed, err := abi.JSON(strings.NewReader(erc20FragmentABI))
	if err != nil {
		return nil, err
	}

	return &EthSource{
		client:  client,
		network: network,
		erc20:   parsed,
	}, nil
}

func (s *EthSource) TokenMetadata(ctx context.Context, token ethcommon.Address) (Metadata, error) {
	if common.IsNativeToken(token) {
		return NativeMetadata(), nil
	}

	fallback := Fallback(s.network, token)
	meta := Metadata{Address: token}

	var firstErr error

	name, err := s.callString(ctx, token, "name")
	if err != nil {
		firstErr = err
		name = fallback.Name
	}
	meta.Name = name

	symbol, err := s.callString(ctx, token, "symbol")
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		symbol = fallback.Symbol
	}
	meta.Symbol = symbol

	decimals, err := s.callDecimals(ctx, token)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		decimals = fallback.Decimals
	}
	meta.Decimals = decimals

	return meta, firstErr
}

func (s *EthSource) callString(ctx context.Context, token ethcommon.Address, method string) (string, error) {
	out, err := s.call(ctx, token, method)
	if err != nil {
		return "", err
	}

	unpacked, err := s.erc20.Unpack(method, out)
	if err != nil || len(unpacked) != 1 {
		return "", err
	}
	value, ok := unpacked[0].(string)
	if !ok {
		return "", nil
	}
	return value, nil
}

func (s *EthSource) callDecimals(ctx context.Context, token ethcommon.Address) (uint8, error) {
	out, err := s.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}

	unpacked, err := s.erc20.Unpack("decimals", out)
	if err != nil || len(unpacked) != 1 {
		return 0, err
	}
	value, ok := unpacked[0].(uint8)
	if !ok {
		return 0, nil
	}
	return value, nil
}

func (s *EthSource) call(ctx context.Context, token ethcommon.Address, method string) ([]byte, error) {
	data, err := s.erc20.Pack(method)
	if err != nil {
		return nil, err
	}

	return s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
}
