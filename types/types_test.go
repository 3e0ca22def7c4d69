package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RPCURL:          "http://localhost:8545",
		ContractAddress: "0xD909C6961Cd9b6a3CefAa6198fa92f963aeB3994",
		ChainID:         31337,
	}
}

func TestConfigValidateAppliesDefaults(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 30*time.Second, c.DefaultTimeout)
	assert.Equal(t, 8, c.FetchConcurrency)
}

func TestConfigValidateKeepsExplicitValues(t *testing.T) {
	c := validConfig()
	c.DefaultTimeout = 5 * time.Second
	c.FetchConcurrency = 2
	require.NoError(t, c.Validate())
	assert.Equal(t, 5*time.Second, c.DefaultTimeout)
	assert.Equal(t, 2, c.FetchConcurrency)
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc url", func(c *Config) { c.RPCURL = "" }},
		{"malformed rpc url", func(c *Config) { c.RPCURL = "not a url" }},
		{"missing contract", func(c *Config) { c.ContractAddress = "" }},
		{"bad contract address", func(c *Config) { c.ContractAddress = "0x123" }},
		{"zero chain id", func(c *Config) { c.ChainID = 0 }},
		{"negative chain id", func(c *Config) { c.ChainID = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ErrCodeInvalidConfig, se.Code)
		})
	}
}

func TestValidateRecipient(t *testing.T) {
	require.NoError(t, ValidateRecipient(RecipientInfo{
		Name: "Ana", Address: "1 Main St", Phone: "555-0100",
	}))

	err := ValidateRecipient(RecipientInfo{Name: "Ana", Address: "1 Main St"})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeIncompleteRecipient, se.Code)
}

func TestOrderStatusValid(t *testing.T) {
	for s := StatusPending; s <= StatusCancelled; s++ {
		assert.True(t, s.Valid())
	}
	assert.False(t, OrderStatus(6).Valid())
	assert.Equal(t, "OrderStatus(9)", OrderStatus(9).String())
}
