package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", USD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", USD)
		assert.Error(t, err)
	})
}

func TestNewMoneyFromMinorUnits(t *testing.T) {
	m, err := NewMoneyFromMinorUnits(4999, USD)
	require.NoError(t, err)
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(49.99)))
	assert.Equal(t, int64(4999), m.MinorUnits())
}

func TestMoneyMinorUnits(t *testing.T) {
	t.Run("exact cents", func(t *testing.T) {
		m := NewMoneyUSD(decimal.NewFromFloat(12.34))
		assert.Equal(t, int64(1234), m.MinorUnits())
	})

	t.Run("rounds half up", func(t *testing.T) {
		m := NewMoneyUSD(decimal.RequireFromString("0.005"))
		assert.Equal(t, int64(1), m.MinorUnits())
	})

	t.Run("sub-cent fraction rounds down", func(t *testing.T) {
		m := NewMoneyUSD(decimal.RequireFromString("0.004"))
		assert.Equal(t, int64(0), m.MinorUnits())
	})

	t.Run("zero", func(t *testing.T) {
		assert.Equal(t, int64(0), ZeroUSD().MinorUnits())
	})
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("add with same currency", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromFloat(10.50))
		b := NewMoneyUSD(decimal.NewFromFloat(4.25))
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromFloat(14.75)))
	})

	t.Run("add with different currencies fails", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromInt(10))
		b, _ := NewMoney(decimal.NewFromInt(10), EUR)
		_, err := a.Add(b)
		assert.Error(t, err)
	})

	t.Run("subtract", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromFloat(10.00))
		b := NewMoneyUSD(decimal.NewFromFloat(3.50))
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromFloat(6.50)))
	})

	t.Run("multiply by int", func(t *testing.T) {
		m := NewMoneyUSD(decimal.NewFromFloat(9.99))
		result := m.MultiplyByInt(3)
		assert.True(t, result.Amount().Equal(decimal.NewFromFloat(29.97)))
		assert.Equal(t, int64(2997), result.MinorUnits())
	})
}

func TestMoneyComparison(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromInt(10))
	b := NewMoneyUSD(decimal.NewFromInt(5))

	t.Run("equals", func(t *testing.T) {
		assert.True(t, a.Equals(NewMoneyUSD(decimal.NewFromInt(10))))
		assert.False(t, a.Equals(b))
	})

	t.Run("greater than", func(t *testing.T) {
		gt, err := a.GreaterThan(b)
		require.NoError(t, err)
		assert.True(t, gt)
	})

	t.Run("sign checks", func(t *testing.T) {
		assert.True(t, a.IsPositive())
		assert.True(t, ZeroUSD().IsZero())
		neg := NewMoneyUSD(decimal.NewFromInt(-1))
		assert.True(t, neg.IsNegative())
	})
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyUSD(decimal.NewFromFloat(49.99))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"49.99","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string amount", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("19.99"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(19.99)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scans bytes", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan([]byte("5.00")))
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(5)))
	})

	t.Run("nil becomes zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})
}

func TestMoneyString(t *testing.T) {
	m := NewMoneyUSD(decimal.NewFromFloat(9.9))
	assert.Equal(t, "9.90 USD", m.String())
}
