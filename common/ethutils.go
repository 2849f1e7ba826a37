package common

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel address that stands for the chain's native
// coin wherever a deposit token address is expected.
var NativeToken = ethcommon.Address{}

func IsNativeToken(addr ethcommon.Address) bool {
	return addr == NativeToken
}

func RandEthAddress() ethcommon.Address {
	return ethcommon.BytesToAddress(RandBytes(20))
}
