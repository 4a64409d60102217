package solana

// Environment is the RPC endpoint for a public cluster.
type Environment string

// Endpoints for the public clusters. Dedicated RPC providers can be used
// by passing their URL to New directly.
const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)
