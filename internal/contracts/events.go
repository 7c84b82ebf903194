package contracts

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/registry-indexer/internal/domain"
)

// Event is a decoded registry log payload.
// The set of implementations is closed: only this package can add kinds.
type Event interface {
	Kind() domain.EventKind
	sealed()
}

// DecodedLog is a typed event together with its chain coordinates
type DecodedLog struct {
	Event Event
	Meta  domain.LogMeta
}

// Kind returns the event kind of the decoded log
func (l DecodedLog) Kind() domain.EventKind {
	return l.Event.Kind()
}

// Field names must match the ABI argument names in CamelCase: go-ethereum
// fills indexed arguments by reflected field name.

// ManufacturerRegistered carries only the address; the name is read from the contract
type ManufacturerRegistered struct {
	ManufacturerAddress common.Address
}

type ContractCreated struct {
	ContractAddress common.Address
	Owner           common.Address
}

type OwnershipCreated struct {
	ContractAddress common.Address
	Owner           common.Address
}

type UserRegistered struct {
	UserAddress common.Address
	Username    string
}

// OwnershipCode is a one-time claim code issued for an item
type OwnershipCode struct {
	OwnershipCode [32]byte
	ItemID        string `abi:"itemId"`
	TempOwner     common.Address
}

// ItemCreated carries only the item id and owner; item details are read from the contract
type ItemCreated struct {
	ItemID string `abi:"itemId"`
	Owner  common.Address
}

// OwnershipClaimed does not identify the claimed item
type OwnershipClaimed struct {
	NewOwner common.Address
	OldOwner common.Address
}

type CodeRevoked struct {
	ItemHash [32]byte
}

type AuthenticitySet struct {
	AuthenticityAddress common.Address
}

type EIP712DomainChanged struct{}

func (ManufacturerRegistered) Kind() domain.EventKind { return domain.KindManufacturerRegistered }
func (ContractCreated) Kind() domain.EventKind        { return domain.KindContractCreated }
func (OwnershipCreated) Kind() domain.EventKind       { return domain.KindOwnershipCreated }
func (UserRegistered) Kind() domain.EventKind         { return domain.KindUserRegistered }
func (OwnershipCode) Kind() domain.EventKind          { return domain.KindOwnershipCode }
func (ItemCreated) Kind() domain.EventKind            { return domain.KindItemCreated }
func (OwnershipClaimed) Kind() domain.EventKind       { return domain.KindOwnershipClaimed }
func (CodeRevoked) Kind() domain.EventKind            { return domain.KindCodeRevoked }
func (AuthenticitySet) Kind() domain.EventKind        { return domain.KindAuthenticitySet }
func (EIP712DomainChanged) Kind() domain.EventKind    { return domain.KindEIP712DomainChanged }

func (ManufacturerRegistered) sealed() {}
func (ContractCreated) sealed()        {}
func (OwnershipCreated) sealed()       {}
func (UserRegistered) sealed()         {}
func (OwnershipCode) sealed()          {}
func (ItemCreated) sealed()            {}
func (OwnershipClaimed) sealed()       {}
func (CodeRevoked) sealed()            {}
func (AuthenticitySet) sealed()        {}
func (EIP712DomainChanged) sealed()    {}

// newEvent returns a pointer to an empty payload for kind
func newEvent(kind domain.EventKind) (interface{}, bool) {
	switch kind {
	case domain.KindManufacturerRegistered:
		return &ManufacturerRegistered{}, true
	case domain.KindContractCreated:
		return &ContractCreated{}, true
	case domain.KindOwnershipCreated:
		return &OwnershipCreated{}, true
	case domain.KindUserRegistered:
		return &UserRegistered{}, true
	case domain.KindOwnershipCode:
		return &OwnershipCode{}, true
	case domain.KindItemCreated:
		return &ItemCreated{}, true
	case domain.KindOwnershipClaimed:
		return &OwnershipClaimed{}, true
	case domain.KindCodeRevoked:
		return &CodeRevoked{}, true
	case domain.KindAuthenticitySet:
		return &AuthenticitySet{}, true
	case domain.KindEIP712DomainChanged:
		return &EIP712DomainChanged{}, true
	default:
		return nil, false
	}
}

// deref turns the pointer returned by newEvent into the value Event
func deref(v interface{}) Event {
	switch e := v.(type) {
	case *ManufacturerRegistered:
		return *e
	case *ContractCreated:
		return *e
	case *OwnershipCreated:
		return *e
	case *UserRegistered:
		return *e
	case *OwnershipCode:
		return *e
	case *ItemCreated:
		return *e
	case *OwnershipClaimed:
		return *e
	case *CodeRevoked:
		return *e
	case *AuthenticitySet:
		return *e
	case *EIP712DomainChanged:
		return *e
	default:
		return nil
	}
}
