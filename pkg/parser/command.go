package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mina-swap/pkg/types"
)

// <amount> <from> to <to>, optionally prefixed by "quote" or "swap"
var commandPattern = regexp.MustCompile(`(?i)^(?:(?:quote|swap)\s+)?(\d+(?:\.\d+)?|\.\d+)\s+([A-Za-z0-9._-]+)\s+to\s+([A-Za-z0-9._-]+)$`)

// ParseQuoteCommand parses a natural language trade command.
// Asset symbols keep their case so that "cUSD" survives.
// Examples:
//   - "10 MINA to cUSD"
//   - "swap 2.5 ADA to MINA"
func ParseQuoteCommand(command string) (*types.QuoteRequest, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid command format. Expected: '<amount> <asset> to <asset>' (e.g., '10 MINA to cUSD')")
	}

	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", matches[1], err)
	}

	return &types.QuoteRequest{
		FromAsset: matches[2],
		ToAsset:   matches[3],
		Amount:    amount,
	}, nil
}

// ValidateQuoteRequest checks a request before it is sent from the CLI
func ValidateQuoteRequest(req *types.QuoteRequest) error {
	if req.FromAsset == "" {
		return fmt.Errorf("source asset is required")
	}
	if req.ToAsset == "" {
		return fmt.Errorf("destination asset is required")
	}
	if strings.EqualFold(req.FromAsset, req.ToAsset) {
		return fmt.Errorf("source and destination asset must differ")
	}
	if req.Amount <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}
