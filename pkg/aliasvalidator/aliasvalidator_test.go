package aliasvalidator

import (
	"errors"
	"testing"

	"github.com/cuemby/clustermeta/pkg/metaerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAliasStandaloneRejectsEmptyName(t *testing.T) {
	require.Error(t, ValidateAliasStandalone("", nil))
}

func TestValidateAliasStandaloneRejectsUppercase(t *testing.T) {
	require.Error(t, ValidateAliasStandalone("Orders", nil))
}

func TestValidateAliasStandaloneRejectsLeadingUnderscore(t *testing.T) {
	require.Error(t, ValidateAliasStandalone("_orders", nil))
}

func TestValidateAliasStandaloneRejectsDotDot(t *testing.T) {
	require.Error(t, ValidateAliasStandalone("..", nil))
}

func TestValidateAliasStandaloneRejectsRoutingWithComma(t *testing.T) {
	routing := "a,b"
	require.Error(t, ValidateAliasStandalone("orders-alias", &routing))
}

func TestValidateAliasStandaloneAcceptsValidName(t *testing.T) {
	routing := "shard-1"
	assert.NoError(t, ValidateAliasStandalone("orders-alias", &routing))
}

func TestValidateAliasRejectsNameCollidingWithIndex(t *testing.T) {
	lookup := func(name string) bool { return name == "orders" }
	err := ValidateAlias("orders", "orders-2026", nil, lookup)
	require.Error(t, err)
	assert.True(t, metaerr.IsKind(err, metaerr.Conflict))
}

func TestValidateAliasRequiresIndexName(t *testing.T) {
	err := ValidateAlias("orders-alias", "", nil, func(string) bool { return false })
	require.Error(t, err)
	assert.True(t, metaerr.IsKind(err, metaerr.InvalidInput))
}

func TestValidateAliasFilterWrapsCompileFailure(t *testing.T) {
	failing := func([]byte) error { return errors.New("boom") }
	err := ValidateAliasFilter("orders-alias", []byte(`{}`), failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders-alias")
}

func TestValidateAliasFilterNoopWithoutFilter(t *testing.T) {
	assert.NoError(t, ValidateAliasFilter("orders-alias", nil, func([]byte) error { return errors.New("should not be called") }))
}
