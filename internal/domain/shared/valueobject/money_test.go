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
		m, err := NewMoney(decimal.RequireFromString("100.50"), BRL)
		require.NoError(t, err)
		assert.Equal(t, BRL, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.50")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestMoney_Add(t *testing.T) {
	a := NewMoneyBRL(decimal.RequireFromString("10.10"))
	b := NewMoneyBRL(decimal.RequireFromString("0.90"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(11)))

	usd, err := NewMoney(decimal.NewFromInt(1), USD)
	require.NoError(t, err)
	_, err = a.Add(usd)
	assert.Error(t, err)
}

func TestMoney_Split(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"even split", "300.00", 3, []string{"100", "100", "100"}},
		{"remainder goes to last share", "100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"single share keeps everything", "1625.93", 1, []string{"1625.93"}},
		{"zero total", "0", 4, []string{"0", "0", "0", "0"}},
		{"leftover cents spread over the last shares", "200.00", 12, []string{
			"16.66", "16.66", "16.66", "16.66",
			"16.67", "16.67", "16.67", "16.67", "16.67", "16.67", "16.67", "16.67",
		}},
		{"total smaller than the share count", "0.05", 10, []string{
			"0", "0", "0", "0", "0", "0.01", "0.01", "0.01", "0.01", "0.01",
		}},
		{"negative total", "-100.00", 3, []string{"-33.33", "-33.33", "-33.34"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := NewMoneyBRL(decimal.RequireFromString(tt.total)).Split(tt.n)
			require.NoError(t, err)
			require.Len(t, parts, tt.n)

			sum := decimal.Zero
			for i, p := range parts {
				assert.True(t, p.Amount().Equal(decimal.RequireFromString(tt.want[i])),
					"share %d: got %s want %s", i, p.Amount(), tt.want[i])
				sum = sum.Add(p.Amount())
			}
			assert.True(t, sum.Equal(decimal.RequireFromString(tt.total)))
		})
	}

	t.Run("rejects non-positive share count", func(t *testing.T) {
		_, err := ZeroBRL().Split(0)
		assert.Error(t, err)
	})
}

func TestAverageAmount(t *testing.T) {
	assert.True(t, AverageAmount(nil).IsZero())

	avg := AverageAmount([]decimal.Decimal{
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("120.00"),
	})
	assert.Equal(t, "106.67", avg.StringFixed(2))
}

func TestMoney_FormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatBRL(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$ 162,59", FormatBRL(decimal.RequireFromString("162.59")))
}

func TestMoney_JSON(t *testing.T) {
	m := NewMoneyBRL(decimal.RequireFromString("162.59"))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"162.59","currency":"BRL"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, m.Equals(back))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("42.10"))
	assert.Equal(t, BRL, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("42.1")))

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "42.10", v)
}
