package entity

// EndpointStatus is the result of probing one chain's RPC endpoint.
type EndpointStatus struct {
	ChainID   int64  `json:"chainId"`
	URL       RPCURL `json:"url"`
	IsWorking bool   `json:"isWorking"`
	LatencyMs *int64 `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}
