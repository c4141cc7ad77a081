package admin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/state"
	test "github.com/riskgate-org/riskgate/testutils"
	testlogger "github.com/riskgate-org/riskgate/testutils/logger"
	testtxsystem "github.com/riskgate-org/riskgate/testutils/txsystem"
	"github.com/riskgate-org/riskgate/types"
)

func TestNewModule(t *testing.T) {
	s := state.NewEmptyState()
	_, err := NewModule(nil, access.NewRegistry(s), testlogger.New(t))
	require.EqualError(t, err, "state is nil")
	_, err = NewModule(s, nil, testlogger.New(t))
	require.EqualError(t, err, "access registry is nil")
	_, err = NewModule(s, access.NewRegistry(s), nil)
	require.EqualError(t, err, "logger is nil")
}

func TestAdministration(t *testing.T) {
	admin, stranger := test.RandomAddress(), test.RandomAddress()
	v1, v2 := test.RandomAddress(), test.RandomAddress()
	s := state.NewEmptyState()
	require.NoError(t, s.Apply(access.GrantRole(access.RoleAdmin, admin, 1)))
	s.Commit()
	reg := access.NewRegistry(s)
	m, err := NewModule(s, reg, testlogger.New(t))
	require.NoError(t, err)
	exe := testtxsystem.NewExecutor(t, s, 100, m)

	t.Run("requires admin", func(t *testing.T) {
		for _, tc := range []struct {
			txType string
			attr   any
		}{
			{PayloadTypeGrantRole, &RoleAttributes{Role: access.RoleIssuer, Account: stranger}},
			{PayloadTypeRevokeRole, &RoleAttributes{Role: access.RoleAdmin, Account: admin}},
			{PayloadTypeAddValidator, &ValidatorAttributes{Validator: stranger}},
			{PayloadTypeRemoveValidator, &ValidatorAttributes{Validator: v1}},
			{PayloadTypeSetMinSigners, &SetMinSignersAttributes{MinSigners: 1}},
		} {
			_, err := exe.Execute(t, stranger, tc.txType, tc.attr)
			require.ErrorIs(t, err, access.ErrMissingRole, tc.txType)
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := exe.Execute(t, admin, PayloadTypeGrantRole, &RoleAttributes{Role: 0, Account: stranger})
		require.ErrorIs(t, err, access.ErrInvalidRole)
	})

	t.Run("validators and threshold", func(t *testing.T) {
		_, err := exe.Execute(t, admin, PayloadTypeSetMinSigners, &SetMinSignersAttributes{MinSigners: 1})
		require.ErrorIs(t, err, access.ErrMinSigners)

		sm, err := exe.Execute(t, admin, PayloadTypeAddValidator, &ValidatorAttributes{Validator: v1})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventValidatorAdded}, testtxsystem.EventTypes(sm))
		_, err = exe.Execute(t, admin, PayloadTypeAddValidator, &ValidatorAttributes{Validator: v2})
		require.NoError(t, err)
		_, err = exe.Execute(t, admin, PayloadTypeAddValidator, &ValidatorAttributes{Validator: v2})
		require.ErrorIs(t, err, access.ErrAlreadyGranted)

		sm, err = exe.Execute(t, admin, PayloadTypeSetMinSigners, &SetMinSignersAttributes{MinSigners: 2})
		require.NoError(t, err)
		require.EqualValues(t, 2, sm.Events[0].Fields["minSigners"])
		require.EqualValues(t, 2, reg.MinSigners())

		_, err = exe.Execute(t, admin, PayloadTypeRemoveValidator, &ValidatorAttributes{Validator: v1})
		require.ErrorIs(t, err, access.ErrMinSigners)
		require.True(t, reg.IsValidator(v1))

		_, err = exe.Execute(t, admin, PayloadTypeSetMinSigners, &SetMinSignersAttributes{MinSigners: 1})
		require.NoError(t, err)
		sm, err = exe.Execute(t, admin, PayloadTypeRemoveValidator, &ValidatorAttributes{Validator: v1})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventValidatorRemoved}, testtxsystem.EventTypes(sm))
		require.False(t, reg.IsValidator(v1))
	})

	t.Run("grant and revoke", func(t *testing.T) {
		sm, err := exe.Execute(t, admin, PayloadTypeGrantRole, &RoleAttributes{Role: access.RoleTreasury, Account: stranger})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRoleGranted}, testtxsystem.EventTypes(sm))
		require.EqualValues(t, access.RoleTreasury, sm.Events[0].Fields["role"])
		require.True(t, reg.HasRole(access.RoleTreasury, stranger))

		_, err = exe.Execute(t, admin, PayloadTypeRevokeRole, &RoleAttributes{Role: access.RoleAdmin, Account: admin})
		require.ErrorIs(t, err, access.ErrLastAdmin)

		sm, err = exe.Execute(t, admin, PayloadTypeRevokeRole, &RoleAttributes{Role: access.RoleTreasury, Account: stranger})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRoleRevoked}, testtxsystem.EventTypes(sm))
		require.False(t, reg.HasRole(access.RoleTreasury, stranger))
	})

	t.Run("validator role reports validator set changes", func(t *testing.T) {
		v3 := test.RandomAddress()
		sm, err := exe.Execute(t, admin, PayloadTypeGrantRole, &RoleAttributes{Role: access.RoleValidator, Account: v3})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRoleGranted, EventValidatorAdded}, testtxsystem.EventTypes(sm))
		require.Equal(t, v3, sm.Events[1].Subject)
		require.True(t, reg.IsValidator(v3))

		sm, err = exe.Execute(t, admin, PayloadTypeRevokeRole, &RoleAttributes{Role: access.RoleValidator, Account: v3})
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRoleRevoked, EventValidatorRemoved}, testtxsystem.EventTypes(sm))
		require.False(t, reg.IsValidator(v3))
	})
}
