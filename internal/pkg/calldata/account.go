package calldata

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EncodeExecute wraps a call in the smart account execute(dest, value, func) entry point.
func EncodeExecute(dest common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if data == nil {
		data = []byte{}
	}
	return pack(accountABI, "execute", dest, value, data)
}

// EncodeGetNonce reads the entry point nonce of sender for the default key.
func EncodeGetNonce(sender common.Address) ([]byte, error) {
	return pack(entryPointABI, "getNonce", sender, new(big.Int))
}

// DecodeGetNonce returns the nonce from a getNonce result.
func DecodeGetNonce(ret []byte) (*big.Int, error) {
	return unpackUint(entryPointABI, "getNonce", ret)
}
