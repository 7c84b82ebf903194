package domain

import (
	"strings"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// Domain names one of the indexed registry contracts
type Domain string

const (
	// DomainAuthenticity is the manufacturer/contract registry
	DomainAuthenticity Domain = "authenticity"
	// DomainOwnership is the item/user/ownership registry
	DomainOwnership Domain = "ownership"
)

// EventKind is the ABI event name of a registry log
type EventKind string

const (
	// Authenticity contract
	KindManufacturerRegistered EventKind = "ManufacturerRegistered"
	KindContractCreated        EventKind = "ContractCreated"

	// Ownership contract
	KindOwnershipCreated EventKind = "OwnershipCreated"
	KindUserRegistered   EventKind = "UserRegistered"
	KindOwnershipCode    EventKind = "OwnershipCode"
	KindItemCreated      EventKind = "ItemCreated"
	KindOwnershipClaimed EventKind = "OwnershipClaimed"
	KindCodeRevoked      EventKind = "CodeRevoked"
	KindAuthenticitySet  EventKind = "AuthenticitySet"

	// Declared by both contracts, never projected
	KindEIP712DomainChanged EventKind = "EIP712DomainChanged"
)

// LogMeta carries the chain coordinates of a decoded log
type LogMeta struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	BlockHash   string `json:"blockHash"`
	LogIndex    uint   `json:"logIndex"`
}

// HasTxHash reports whether the log carries a usable transaction hash
func (m LogMeta) HasTxHash() bool {
	h := strings.TrimPrefix(strings.ToLower(m.TxHash), "0x")
	return h != "" && strings.Trim(h, "0") != ""
}

// BlockRange is an inclusive range of block numbers
type BlockRange struct {
	From uint64
	To   uint64
}

// Size returns the number of blocks in the range
func (r BlockRange) Size() uint64 {
	return r.To - r.From + 1
}

// SplitBlockRange splits the inclusive range [from, to] into consecutive
// non-overlapping ranges of at most size blocks.
// An empty slice is returned when from > to.
func SplitBlockRange(from, to, size uint64) []BlockRange {
	if from > to {
		return nil
	}
	if size == 0 {
		size = 1
	}

	var ranges []BlockRange
	for start := from; start <= to; {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges
}

// BackfillStart returns head - window saturated at zero
func BackfillStart(head, window uint64) uint64 {
	if head < window {
		return 0
	}
	return head - window
}

// SupervisorState is the lifecycle state of a domain supervisor
type SupervisorState string

const (
	SupervisorStateBackfilling SupervisorState = "backfilling"
	SupervisorStateStreaming   SupervisorState = "streaming"
	SupervisorStateFailed      SupervisorState = "failed"
	SupervisorStateStopped     SupervisorState = "stopped"
)

// Code returns the numeric value exported for the state gauge
func (s SupervisorState) Code() float64 {
	switch s {
	case SupervisorStateBackfilling:
		return 1
	case SupervisorStateStreaming:
		return 2
	case SupervisorStateFailed:
		return 3
	default:
		return 0
	}
}

// ProjectionNotice announces a newly inserted read-model row
type ProjectionNotice struct {
	Domain      Domain `json:"domain"`
	Table       string `json:"table"`
	Key         string `json:"key"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}
