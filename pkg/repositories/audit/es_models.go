package audit

import (
	"time"

	"github.com/fadedpez/contrast/pkg/entities"
)

// ESTransaction represents a transaction log document in Elasticsearch
type ESTransaction struct {
	EntryID      string    `json:"entry_id"`
	UserID       string    `json:"user_id"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	SignedAmount int64     `json:"signed_amount"`
	Reason       string    `json:"reason"`
	BalanceAfter int64     `json:"balance_after"`
	Timestamp    time.Time `json:"timestamp"`
}

func toESTransaction(entry *entities.TransactionLogEntry) ESTransaction {
	return ESTransaction{
		EntryID:      entry.ID,
		UserID:       entry.UserID,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount,
		SignedAmount: entry.SignedAmount(),
		Reason:       entry.Reason,
		BalanceAfter: entry.BalanceAfter,
		Timestamp:    entry.Timestamp,
	}
}

const transactionMapping = `{
	"mappings": {
		"properties": {
			"entry_id": { "type": "keyword" },
			"user_id": { "type": "keyword" },
			"kind": { "type": "keyword" },
			"amount": { "type": "long" },
			"signed_amount": { "type": "long" },
			"reason": { "type": "text", "fields": { "raw": { "type": "keyword", "ignore_above": 256 } } },
			"balance_after": { "type": "long" },
			"timestamp": { "type": "date" }
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1,
		"refresh_interval": "1s"
	}
}`

// bulkResponse is the subset of the _bulk response we inspect
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Index  string `json:"_index"`
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}
