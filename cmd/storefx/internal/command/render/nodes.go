// Copyright 2026 Peter Edge
//
// All rights reserved.

package render

import (
	"fmt"
	"math"
	"sync"

	"github.com/bufdev/storefx/internal/pkg/yamlstrict"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
)

// externalPriceNode is one entry of a price file.
type externalPriceNode struct {
	ID       string  `yaml:"id"`
	Amount   float64 `yaml:"amount"`
	Currency string  `yaml:"currency"`
}

// priceNode is a price read from a price file. It implements storefxmanager.PriceNode.
type priceNode struct {
	id       string
	amount   float64
	currency storefxcurrency.Code

	mu      sync.Mutex
	display string
}

func (n *priceNode) BaseAmount() float64 {
	return n.amount
}

func (n *priceNode) BaseCurrency() storefxcurrency.Code {
	return n.currency
}

func (n *priceNode) SetDisplay(display string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.display = display
}

func (n *priceNode) Display() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.display
}

// readPriceNodes reads a YAML list of prices:
//
//	- id: coffee
//	  amount: 3.5
//	  currency: EUR
//
// IDs must be unique and non-empty, amounts finite, and currencies supported.
func readPriceNodes(filePath string) ([]*priceNode, error) {
	var externalNodes []externalPriceNode
	if err := yamlstrict.ReadFile(filePath, &externalNodes); err != nil {
		return nil, err
	}
	if len(externalNodes) == 0 {
		return nil, fmt.Errorf("%s contains no prices", filePath)
	}
	seenIDs := make(map[string]struct{}, len(externalNodes))
	nodes := make([]*priceNode, 0, len(externalNodes))
	for i, externalNode := range externalNodes {
		if externalNode.ID == "" {
			return nil, fmt.Errorf("price %d: id is required", i)
		}
		if _, ok := seenIDs[externalNode.ID]; ok {
			return nil, fmt.Errorf("duplicate price id %q", externalNode.ID)
		}
		seenIDs[externalNode.ID] = struct{}{}
		if math.IsNaN(externalNode.Amount) || math.IsInf(externalNode.Amount, 0) {
			return nil, fmt.Errorf("price %q: amount must be finite", externalNode.ID)
		}
		if externalNode.Currency == "" {
			return nil, fmt.Errorf("price %q: currency is required", externalNode.ID)
		}
		currency, err := storefxcurrency.Parse(externalNode.Currency)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", externalNode.ID, err)
		}
		nodes = append(nodes, &priceNode{
			id:       externalNode.ID,
			amount:   externalNode.Amount,
			currency: currency,
		})
	}
	return nodes, nil
}
