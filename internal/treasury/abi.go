package treasury

import (
	"io"
	"strings"
)

// Minimal ERC-20 ABI — only the methods the settlement path calls.

func mustERC20ABI() io.Reader {
	return strings.NewReader(`[
		{
			"name": "transfer",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "_to",    "type": "address"},
				{"name": "_value", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "_owner", "type": "address"}],
			"outputs": [{"name": "balance", "type": "uint256"}]
		}
	]`)
}
