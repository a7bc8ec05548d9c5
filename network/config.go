package network

import "fmt"

// Environment variables read by ResolveConfig.
const (
	EnvRPCURL  = "SHAREPOOL_RPC_URL"
	EnvRPCUser = "SHAREPOOL_RPC_USER"
	EnvRPCPass = "SHAREPOOL_RPC_PASS"
)

// RPCConfig holds the connection parameters for a BSV node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// NetworkPresets contains default RPC configurations for local nodes.
// Mainnet has no preset: pools that move real funds must name their node.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "sharepool", Password: "sharepool"},
	"testnet": {URL: "http://localhost:18333", User: "sharepool", Password: "sharepool"},
}

// ResolveConfig merges RPC settings, later layers overriding earlier ones:
//  1. network preset (regtest/testnet only)
//  2. environment (SHAREPOOL_RPC_URL, SHAREPOOL_RPC_USER, SHAREPOOL_RPC_PASS)
//  3. explicit values, typically from the config file
func ResolveConfig(explicit *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if env != nil {
		if v := env[EnvRPCURL]; v != "" {
			result.URL = v
		}
		if v := env[EnvRPCUser]; v != "" {
			result.User = v
		}
		if v := env[EnvRPCPass]; v != "" {
			result.Password = v
		}
	}

	if explicit != nil {
		if explicit.URL != "" {
			result.URL = explicit.URL
		}
		if explicit.User != "" {
			result.User = explicit.User
		}
		if explicit.Password != "" {
			result.Password = explicit.Password
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s needs rpcurl in the config file or %s", ErrMissingRPCConfig, network, EnvRPCURL)
	}

	return &result, nil
}
