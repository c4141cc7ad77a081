package admin

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeGrantRole       = "grantRole"
	PayloadTypeRevokeRole      = "revokeRole"
	PayloadTypeAddValidator    = "addValidator"
	PayloadTypeRemoveValidator = "removeValidator"
	PayloadTypeSetMinSigners   = "setMinSigners"

	EventRoleGranted      types.EventType = "RoleGranted"
	EventRoleRevoked      types.EventType = "RoleRevoked"
	EventValidatorAdded   types.EventType = "ValidatorAdded"
	EventValidatorRemoved types.EventType = "ValidatorRemoved"
	EventMinSignersSet    types.EventType = "MinSignersSet"
)

type (
	RoleAttributes struct {
		_       struct{} `cbor:",toarray"`
		Role    access.Role
		Account common.Address
	}

	ValidatorAttributes struct {
		_         struct{} `cbor:",toarray"`
		Validator common.Address
	}

	SetMinSignersAttributes struct {
		_          struct{} `cbor:",toarray"`
		MinSigners uint64
	}
)
