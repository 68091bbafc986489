package treasury

import "fmt"

// usdcDecimals is the ERC-20 decimal count for USDC on every supported
// network.
const usdcDecimals = 6

// Network binds a chain ID to its USDC contract and a default RPC
// endpoint used when none is configured.
type Network struct {
	Name         string
	ChainID      int64
	USDCContract string
	DefaultRPC   string
}

var networks = map[string]Network{
	"mainnet": {
		Name:         "mainnet",
		ChainID:      1,
		USDCContract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		DefaultRPC:   "https://eth.llamarpc.com",
	},
	"sepolia": {
		Name:         "sepolia",
		ChainID:      11155111,
		USDCContract: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		DefaultRPC:   "https://rpc.sepolia.org",
	},
	"base": {
		Name:         "base",
		ChainID:      8453,
		USDCContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		DefaultRPC:   "https://mainnet.base.org",
	},
	"optimism": {
		Name:         "optimism",
		ChainID:      10,
		USDCContract: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		DefaultRPC:   "https://mainnet.optimism.io",
	},
	"arbitrum": {
		Name:         "arbitrum",
		ChainID:      42161,
		USDCContract: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		DefaultRPC:   "https://arb1.arbitrum.io/rpc",
	},
}

// ResolveNetwork returns the configuration for a named network.
func ResolveNetwork(name string) (Network, error) {
	n, ok := networks[name]
	if !ok {
		return Network{}, fmt.Errorf("USDC not configured for network %q", name)
	}
	return n, nil
}
