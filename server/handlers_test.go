package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/jcbrates/provider/currencies"
	"github.com/sig-0/jcbrates/rates"
	"github.com/sig-0/jcbrates/storage/memory"
	"github.com/sig-0/jcbrates/storage/types"
)

// tableFetcher publishes the same rates every day
type tableFetcher struct{}

func (tableFetcher) FetchTable(_ context.Context, date types.Date) (*types.RateTable, error) {
	return newTestTable(date), nil
}

func newTestTable(date types.Date) *types.RateTable {
	return &types.RateTable{
		Date: date,
		Rates: map[types.Currency]types.RateEntry{
			currencies.USD: {OriginRate: 1, TargetRate: 1},
			currencies.JPY: {OriginRate: 110, TargetRate: 110},
			currencies.TWD: {OriginRate: 31, TargetRate: 31},
		},
	}
}

func latestTable(table *types.RateTable, err error) *mockRates {
	return &mockRates{
		latestTableFn: func(_ context.Context) (*types.RateTable, error) {
			return table, err
		},
	}
}

func TestHandlers_Convert(t *testing.T) {
	t.Parallel()

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		testTable := []struct {
			name string
			url  string
		}{
			{"missing pair", "/v1/convert?amount=1"},
			{"invalid from", "/v1/convert?from=US&to=TWD&amount=1"},
			{"invalid to", "/v1/convert?from=USD&to=T1D&amount=1"},
			{"missing amount", "/v1/convert?from=USD&to=TWD"},
			{"negative amount", "/v1/convert?from=USD&to=TWD&amount=-1"},
			{"infinite amount", "/v1/convert?from=USD&to=TWD&amount=Inf"},
			{"invalid rate", "/v1/convert?from=USD&to=TWD&amount=1&rate=abc"},
		}

		for _, testCase := range testTable {
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				var called bool

				s := &Server{
					logger: noopLogger,
					rates: &mockRates{
						convertLatestFn: func(
							_ context.Context,
							_, _ types.Currency,
							_ float64,
						) (*types.Conversion, error) {
							called = true

							return nil, nil
						},
					},
				}

				req := httptest.NewRequest(http.MethodGet, testCase.url, http.NoBody)
				w := httptest.NewRecorder()

				s.Convert(w, req)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.False(t, called)
			})
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		t.Parallel()

		testTable := []struct {
			err    error
			name   string
			status int
		}{
			{
				name:   "unknown currency",
				err:    &types.UnknownCurrencyError{Currency: "XXX"},
				status: http.StatusBadRequest,
			},
			{
				name:   "no table",
				err:    fmt.Errorf("%w: checked 30 days", types.ErrNoTableAvailable),
				status: http.StatusServiceUnavailable,
			},
			{
				name: "no table with parse errors",
				err: errors.Join(
					types.ErrNoTableAvailable,
					&types.ParseError{Date: "20261019", Row: 3, Err: errors.New("short row")},
				),
				status: http.StatusServiceUnavailable,
			},
			{
				name:   "parse error",
				err:    &types.ParseError{Date: "20261019", Err: errors.New("empty table")},
				status: http.StatusBadGateway,
			},
			{
				name:   "value out of range",
				err:    fmt.Errorf("%w: 1e308 TWD to JPY", types.ErrValueOutOfRange),
				status: http.StatusBadRequest,
			},
			{
				name:   "unexpected",
				err:    errors.New("boom"),
				status: http.StatusInternalServerError,
			},
		}

		for _, testCase := range testTable {
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				s := &Server{
					logger: noopLogger,
					rates: &mockRates{
						convertLatestFn: func(
							_ context.Context,
							_, _ types.Currency,
							_ float64,
						) (*types.Conversion, error) {
							return nil, testCase.err
						},
					},
				}

				req := httptest.NewRequest(http.MethodGet, "/v1/convert?from=XXX&to=TWD&amount=1", http.NoBody)
				w := httptest.NewRecorder()

				s.Convert(w, req)

				assert.Equal(t, testCase.status, w.Code)

				var resp ErrorResponse

				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.NotEmpty(t, resp.Error)
			})
		}
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var (
			capturedFrom, capturedTo types.Currency
			capturedAmount           float64
		)

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				convertLatestFn: func(
					_ context.Context,
					origin, target types.Currency,
					amount float64,
				) (*types.Conversion, error) {
					capturedFrom, capturedTo, capturedAmount = origin, target, amount

					return &types.Conversion{
						Date:   "20261018",
						Origin: origin,
						Target: target,
						Amount: amount,
						Value:  282,
					}, nil
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/convert?from=jpy&to=twd&amount=1000&rate=-1.5", http.NoBody)
		w := httptest.NewRecorder()

		s.Convert(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, currencies.JPY, capturedFrom)
		assert.Equal(t, currencies.TWD, capturedTo)
		assert.Equal(t, 1000.0, capturedAmount)

		var resp ConvertResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

		assert.Equal(t, types.Date("20261018"), resp.Date)
		assert.Equal(t, currencies.JPY, resp.From)
		assert.Equal(t, currencies.TWD, resp.To)
		require.NotNil(t, resp.Rate)
		assert.Equal(t, -1.5, *resp.Rate)
		assert.InDelta(t, 277.77, resp.Value, 1e-9)
	})
}

func TestHandlers_Convert_OutOfRange(t *testing.T) {
	t.Parallel()

	t.Run("overflowing conversion", func(t *testing.T) {
		t.Parallel()

		s, err := New(rates.NewEngine(rates.NewStore(memory.NewStorage(), tableFetcher{})))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/convert?from=TWD&to=JPY&amount=1e308", http.NoBody)
		w := httptest.NewRecorder()

		s.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, errValueOutOfRange.Error(), resp.Error)
	})

	t.Run("overflowing rate adjustment", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				convertLatestFn: func(
					_ context.Context,
					origin, target types.Currency,
					amount float64,
				) (*types.Conversion, error) {
					return &types.Conversion{
						Date:   "20261018",
						Origin: origin,
						Target: target,
						Amount: amount,
						Value:  1e300,
					}, nil
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/convert?from=JPY&to=TWD&amount=1&rate=1e300", http.NoBody)
		w := httptest.NewRecorder()

		s.Convert(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotZero(t, w.Body.Len())
	})
}

func TestHandlers_Tables(t *testing.T) {
	t.Parallel()

	t.Run("cached dates", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				cachedDatesFn: func(_ context.Context) ([]types.Date, error) {
					return []types.Date{"20261019", "20261016"}, nil
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables", http.NoBody)
		w := httptest.NewRecorder()

		s.Tables(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp DatesResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, []types.Date{"20261019", "20261016"}, resp.Results)
	})

	t.Run("cache error", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				cachedDatesFn: func(_ context.Context) ([]types.Date, error) {
					return nil, errors.New("boom")
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables", http.NoBody)
		w := httptest.NewRecorder()

		s.Tables(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandlers_Table(t *testing.T) {
	t.Parallel()

	t.Run("invalid date", func(t *testing.T) {
		t.Parallel()

		var called bool

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				tableFn: func(_ context.Context, _ types.Date) (*types.RateTable, error) {
					called = true

					return nil, nil
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/2026-10-19", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"date": "2026-10-19"})

		w := httptest.NewRecorder()
		s.Table(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("outside the lookback window", func(t *testing.T) {
		t.Parallel()

		s, err := New(rates.NewEngine(
			rates.NewStore(memory.NewStorage(), tableFetcher{}),
			rates.WithMaxLookback(5),
		))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/20010101", http.NoBody)
		w := httptest.NewRecorder()

		s.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("not published", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				tableFn: func(_ context.Context, _ types.Date) (*types.RateTable, error) {
					return nil, fmt.Errorf("%w: status 404", types.ErrRemoteUnavailable)
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/20261019", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"date": "20261019"})

		w := httptest.NewRecorder()
		s.Table(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var captured types.Date

		s := &Server{
			logger: noopLogger,
			rates: &mockRates{
				tableFn: func(_ context.Context, date types.Date) (*types.RateTable, error) {
					captured = date

					return newTestTable(date), nil
				},
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/20261016", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"date": "20261016"})

		w := httptest.NewRecorder()
		s.Table(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, types.Date("20261016"), captured)

		var resp TableResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, types.Date("20261016"), resp.Date)
		assert.Len(t, resp.Rates, 3)
		assert.Equal(t, 110.0, resp.Rates[currencies.JPY].OriginRate)
	})
}

func TestHandlers_LatestTable(t *testing.T) {
	t.Parallel()

	t.Run("no table", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates:  latestTable(nil, types.ErrNoTableAvailable),
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/latest", http.NoBody)
		w := httptest.NewRecorder()

		s.LatestTable(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates:  latestTable(newTestTable("20261019"), nil),
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/tables/latest", http.NoBody)
		w := httptest.NewRecorder()

		s.LatestTable(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp TableResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, types.Date("20261019"), resp.Date)
		assert.Len(t, resp.Rates, 3)
	})
}

func TestHandlers_Currencies(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates:  latestTable(newTestTable("20261019"), nil),
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/currencies", http.NoBody)
		w := httptest.NewRecorder()

		s.Currencies(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp CurrenciesResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, types.Date("20261019"), resp.Date)
		assert.Equal(
			t,
			[]types.Currency{currencies.JPY, currencies.TWD, currencies.USD},
			resp.Results,
		)
	})

	t.Run("unexpected error", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			logger: noopLogger,
			rates:  latestTable(nil, context.DeadlineExceeded),
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/currencies", http.NoBody)
		w := httptest.NewRecorder()

		s.Currencies(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	s, err := New(latestTable(newTestTable("20261019"), nil))
	require.NoError(t, err)

	s.Routes(func(router chi.Router) {
		router.Get("/extra", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	})

	testTable := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/v1/currencies", http.StatusOK},
		{"/v1/tables", http.StatusOK},
		{"/openapi.yaml", http.StatusOK},
		{"/docs", http.StatusOK},
		{"/extra", http.StatusTeapot},
		{"/missing", http.StatusNotFound},
	}

	for _, testCase := range testTable {
		req := httptest.NewRequest(http.MethodGet, testCase.path, http.NoBody)
		w := httptest.NewRecorder()

		s.ServeHTTP(w, req)

		assert.Equal(t, testCase.status, w.Code, testCase.path)
	}
}

func withRouteParams(t *testing.T, req *http.Request, params map[string]string) *http.Request {
	t.Helper()

	rctx := chi.NewRouteContext()

	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
