package types

// QuoteRequest asks the AMM how much of ToAsset a given Amount of FromAsset buys
type QuoteRequest struct {
	FromAsset string  `json:"fromAsset"`
	ToAsset   string  `json:"toAsset"`
	Amount    float64 `json:"amount"`
}

// SwapRequest is a QuoteRequest executed on behalf of a wallet
type SwapRequest struct {
	QuoteRequest
	WalletAddress string `json:"walletAddress"`
}

// QuoteResponse holds the AMM's price estimate for a QuoteRequest
type QuoteResponse struct {
	FromAsset string  `json:"fromAsset"`
	ToAsset   string  `json:"toAsset"`
	AmountIn  float64 `json:"amountIn"`
	AmountOut float64 `json:"amountOut"`
	Fee       float64 `json:"fee"`
}

// Price returns how many units of ToAsset one unit of FromAsset buys
func (q *QuoteResponse) Price() float64 {
	if q.AmountIn == 0 {
		return 0
	}
	return q.AmountOut / q.AmountIn
}

// SwapResponse is the AMM's answer to a submitted swap.
// Status is whatever the server reports; it is not an enumerated set.
type SwapResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	SubmittedAt   string `json:"submittedAt,omitempty"`
	Message       string `json:"message,omitempty"`
}
