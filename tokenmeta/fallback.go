package tokenmeta

import (
	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Networks with a static fallback table. Used whenever on-chain metadata
// calls are unavailable or revert.
const (
	NetworkMain    = "main"
	NetworkSepolia = "sepolia"
	NetworkLocal   = "local"
)

// NativeMetadata is what the native-coin sentinel always resolves to,
// without any lookup.
func NativeMetadata() Metadata {
	return Metadata{
		Address:  common.NativeToken,
		Name:     "Ether",
		Symbol:   "ETH",
		Decimals: 18,
	}
}

var fallbackTable = map[string]map[ethcommon.Address]Metadata{
	NetworkMain: {
		ethcommon.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"): {
			Name:     "Dai Stablecoin",
			Symbol:   "DAI",
			Decimals: 18,
		},
		ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"): {
			Name:     "USD Coin",
			Symbol:   "USDC",
			Decimals: 6,
		},
	},
	NetworkSepolia: {},
	NetworkLocal:   {},
}

// Fallback returns the static metadata for a token on the given network.
// Unknown tokens get empty name/symbol and zero decimals, mirroring the
// optional ERC-20 fields.
func Fallback(network string, token ethcommon.Address) Metadata {
	if common.IsNativeToken(token) {
		return NativeMetadata()
	}

	if table, ok := fallbackTable[network]; ok {
		if meta, ok := table[token]; ok {
			meta.Address = token
			return meta
		}
	}

	return Metadata{Address: token}
}
