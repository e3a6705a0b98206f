package entity

// TokenBalance is the result of one balance read. A failed read still yields a
// TokenBalance with a zero balance and Error set.
type TokenBalance struct {
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Balance          string `json:"balance"`
	FormattedBalance string `json:"formattedBalance"`
	USDValue         string `json:"usdValue,omitempty"`
	Contract         string `json:"contract,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Failed reports whether the read behind this balance failed.
func (b TokenBalance) Failed() bool {
	return b.Error != ""
}
