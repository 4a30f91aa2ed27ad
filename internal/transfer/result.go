package transfer

// Status of a single wallet's transfer.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the backend's outcome for one candidate wallet. Never mutated after creation.
type Result struct {
	Wallet      string `json:"wallet" yaml:"wallet"`
	Status      Status `json:"status" yaml:"status"`
	Amount      string `json:"amount" yaml:"amount"`
	TxHash      string `json:"tx_hash,omitempty" yaml:"tx_hash,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty" yaml:"explorer_url,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ShortHash is the hash cut to 16 characters for listings.
func (r Result) ShortHash() string {
	if r.TxHash == "" {
		return "No TX hash"
	}
	if len(r.TxHash) <= 16 {
		return r.TxHash
	}
	return r.TxHash[:16] + "..."
}

// Summary counts a batch of results.
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Success int `json:"success" yaml:"success"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Summarize counts results by status. Statuses other than success/failed
// only contribute to Total.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
