package pricer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/icofund/internal/domain"
)

func tickerServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBinancePricer_GetPrice(t *testing.T) {
	srv := tickerServer(t, http.StatusOK, `{"symbol":"ETHUSDT","price":"3012.50000000"}`)
	p := NewBinancePricer(NewBinanceClient(srv.URL))

	price, err := p.GetPrice(context.Background(), domain.QuotePair("USDT"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("3012.5")), price.String())
}

func TestBinancePricer_APIError(t *testing.T) {
	srv := tickerServer(t, http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`)
	p := NewBinancePricer(NewBinanceClient(srv.URL))

	_, err := p.GetPrice(context.Background(), domain.QuotePair("USDT"))
	assert.Error(t, err)
}

type fixedPricer decimal.Decimal

func (f fixedPricer) GetPrice(context.Context, domain.Pair) (decimal.Decimal, error) {
	return decimal.Decimal(f), nil
}

func TestValue(t *testing.T) {
	amount, err := domain.ParseAmount(domain.Ether, "1.5eth")
	require.NoError(t, err)

	v, err := Value(context.Background(), fixedPricer(decimal.NewFromInt(2000)), amount, "USDT")
	require.NoError(t, err)
	assert.Equal(t, "3000", v.String())
}
