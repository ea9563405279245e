package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "name"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"status":      "verified",
		"is_verified": true,
		"verified_at": int64(1700000000),
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: is_verified < status < verified_at
	assert.Equal(t, "is_verified", ue1.Names["#f0"])
	assert.Equal(t, "status", ue1.Names["#f1"])
	assert.Equal(t, "verified_at", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_SetAndRemove(t *testing.T) {
	ue, err := buildUpdateExpr(
		map[string]interface{}{"is_verified": true},
		"verification_token", "verification_expires",
	)
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0 REMOVE #r0, #r1", ue.Expr)
	assert.Equal(t, "verification_expires", ue.Names["#r0"])
	assert.Equal(t, "verification_token", ue.Names["#r1"])
}

func TestBuildUpdateExpr_RemoveOnly(t *testing.T) {
	ue, err := buildUpdateExpr(nil, "verification_token")
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #r0", ue.Expr)
	assert.Empty(t, ue.Values)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"is_verified": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestTxConditionFailed(t *testing.T) {
	err := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	}
	assert.True(t, txConditionFailed(err, 0))
	assert.False(t, txConditionFailed(err, 1))
	assert.False(t, txConditionFailed(err, 5))
	assert.False(t, txConditionFailed(assert.AnError, 0))
}

func TestConditionFailed(t *testing.T) {
	assert.True(t, conditionFailed(&types.ConditionalCheckFailedException{}))
	assert.False(t, conditionFailed(assert.AnError))
}

func TestCursorRoundTrip(t *testing.T) {
	id, err := decodeCursor(encodeCursor("01HX"))
	require.NoError(t, err)
	assert.Equal(t, "01HX", id)

	_, err = decodeCursor("!!!")
	assert.Error(t, err)
}
