// Chain configuration for the networks the gateway can price payments on.
// All USDC addresses were verified on 2025-10-28. The facilitator executes
// settlement; the gateway only needs the network id, the token address, and
// its decimals to build 402 challenges.
package gateway

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// NetworkType represents the blockchain virtual machine type.
type NetworkType int

const (
	// NetworkTypeUnknown represents an unrecognized network.
	NetworkTypeUnknown NetworkType = iota
	// NetworkTypeEVM represents Ethereum Virtual Machine chains.
	NetworkTypeEVM
	// NetworkTypeSVM represents Solana Virtual Machine chains.
	NetworkTypeSVM
)

// ChainConfig contains chain-specific configuration for the settlement token.
type ChainConfig struct {
	// NetworkID is the x402 protocol network identifier (e.g., "base").
	NetworkID string

	// USDCAddress is the official Circle USDC contract address or mint address.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals uint8
}

// Mainnet chain configurations
var (
	// BaseMainnet is the configuration for Base mainnet.
	BaseMainnet = ChainConfig{
		NetworkID:   "base",
		USDCAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:    6,
	}

	// PolygonMainnet is the configuration for Polygon PoS mainnet.
	PolygonMainnet = ChainConfig{
		NetworkID:   "polygon",
		USDCAddress: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals:    6,
	}

	// SolanaMainnet is the configuration for Solana mainnet.
	SolanaMainnet = ChainConfig{
		NetworkID:   "solana",
		USDCAddress: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Decimals:    6,
	}
)

// Testnet chain configurations
var (
	// BaseSepolia is the configuration for Base Sepolia testnet.
	BaseSepolia = ChainConfig{
		NetworkID:   "base-sepolia",
		USDCAddress: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:    6,
	}

	// PolygonAmoy is the configuration for Polygon Amoy testnet.
	PolygonAmoy = ChainConfig{
		NetworkID:   "polygon-amoy",
		USDCAddress: "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		Decimals:    6,
	}

	// SolanaDevnet is the configuration for Solana devnet.
	SolanaDevnet = ChainConfig{
		NetworkID:   "solana-devnet",
		USDCAddress: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		Decimals:    6,
	}
)

// SettlementChain returns the chain the gateway prices payments on.
// USE_MAINNET selects Base mainnet; the default is Base Sepolia.
func SettlementChain(useMainnet bool) ChainConfig {
	if useMainnet {
		return BaseMainnet
	}
	return BaseSepolia
}

// ChainByNetwork looks up a known chain configuration by network id.
func ChainByNetwork(networkID string) (ChainConfig, error) {
	for _, chain := range []ChainConfig{
		BaseMainnet, PolygonMainnet, SolanaMainnet,
		BaseSepolia, PolygonAmoy, SolanaDevnet,
	} {
		if chain.NetworkID == networkID {
			return chain, nil
		}
	}
	return ChainConfig{}, fmt.Errorf("networkID: unsupported network %q", networkID)
}

// ValidateNetwork validates a network identifier and returns its type.
func ValidateNetwork(networkID string) (NetworkType, error) {
	if networkID == "" {
		return NetworkTypeUnknown, fmt.Errorf("networkID: cannot be empty")
	}

	networkTypes := map[string]NetworkType{
		"base":          NetworkTypeEVM,
		"base-sepolia":  NetworkTypeEVM,
		"polygon":       NetworkTypeEVM,
		"polygon-amoy":  NetworkTypeEVM,
		"solana":        NetworkTypeSVM,
		"solana-devnet": NetworkTypeSVM,
	}

	netType, ok := networkTypes[networkID]
	if !ok {
		return NetworkTypeUnknown, fmt.Errorf("networkID: unsupported network %q", networkID)
	}

	return netType, nil
}

// ValidateTokenAddress validates that a token or recipient address matches the
// network type: 0x-prefixed hex for EVM chains, base58 for Solana chains.
func ValidateTokenAddress(networkID, address string) error {
	if address == "" {
		return fmt.Errorf("token address cannot be empty")
	}

	netType, err := ValidateNetwork(networkID)
	if err != nil {
		return err
	}

	switch netType {
	case NetworkTypeEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("token address %q is invalid for EVM network %q, expected 0x-prefixed hex address", address, networkID)
		}
	case NetworkTypeSVM:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("token address %q is invalid for Solana network %q: %v", address, networkID, err)
		}
	}

	return nil
}
