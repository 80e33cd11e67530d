package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/jcbrates/rates"
	"github.com/sig-0/jcbrates/storage/types"
)

var (
	errUnableToConvert     = errors.New("unable to convert")
	errUnableToFetchTable  = errors.New("unable to fetch rate table")
	errUnableToListTables  = errors.New("unable to list rate tables")
	errValueOutOfRange     = errors.New("converted value out of range")
	errTableNotPublished   = errors.New("rate table not published")
	errTableMalformed      = errors.New("rate table malformed")
	errNoTableAvailable    = errors.New("no rate table available")
	errInvalidAmount       = errors.New("invalid amount (must be a non-negative number)")
	errInvalidRate         = errors.New("invalid rate (must be a number)")
	errMissingCurrencyPair = errors.New("from and to are required")
)

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var (
		fromParam   = r.URL.Query().Get("from")
		toParam     = r.URL.Query().Get("to")
		amountParam = r.URL.Query().Get("amount")
		rateParam   = r.URL.Query().Get("rate")
	)

	if strings.TrimSpace(fromParam) == "" || strings.TrimSpace(toParam) == "" {
		writeError(w, http.StatusBadRequest, errMissingCurrencyPair)

		return
	}

	// Parse the currency pair
	from, err := types.ParseCurrency(fromParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := types.ParseCurrency(toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the amount and the rate adjustment (optional)
	amount, err := parseAmount(amountParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	rate, err := parseRate(rateParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	conversion, err := s.rates.ConvertLatest(r.Context(), from, to, amount)
	if err != nil {
		s.writeRatesError(w, err, errUnableToConvert)

		return
	}

	resp := &ConvertResponse{
		Date:   conversion.Date,
		From:   conversion.Origin,
		To:     conversion.Target,
		Amount: conversion.Amount,
		Value:  conversion.Value,
	}

	if rate != nil {
		resp.Rate = rate
		resp.Value = rates.ApplyRate(conversion.Value, *rate)
	}

	if !rates.IsFinite(resp.Value) {
		writeError(w, http.StatusBadRequest, errValueOutOfRange)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) LatestTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.rates.LatestTable(r.Context())
	if err != nil {
		s.writeRatesError(w, err, errUnableToFetchTable)

		return
	}

	writeJSON(w, http.StatusOK, newTableResponse(table))
}

func (s *Server) Tables(w http.ResponseWriter, r *http.Request) {
	dates, err := s.rates.CachedDates(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to list rate tables",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToListTables)

		return
	}

	resp := &DatesResponse{
		Results: dates,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Table(w http.ResponseWriter, r *http.Request) {
	date, err := types.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	table, err := s.rates.Table(r.Context(), date)
	if err != nil {
		s.writeRatesError(w, err, errUnableToFetchTable)

		return
	}

	writeJSON(w, http.StatusOK, newTableResponse(table))
}

func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	table, err := s.rates.LatestTable(r.Context())
	if err != nil {
		s.writeRatesError(w, err, errUnableToFetchTable)

		return
	}

	items := table.Currencies()
	slices.Sort(items)

	resp := &CurrenciesResponse{
		Date:    table.Date,
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeRatesError maps rate lookup errors to API responses
func (s *Server) writeRatesError(w http.ResponseWriter, err, fallback error) {
	var (
		unknownErr *types.UnknownCurrencyError
		parseErr   *types.ParseError
	)

	switch {
	case errors.As(err, &unknownErr):
		writeError(w, http.StatusBadRequest, unknownErr)
	case errors.Is(err, types.ErrValueOutOfRange):
		writeError(w, http.StatusBadRequest, errValueOutOfRange)
	case errors.Is(err, types.ErrDateOutOfRange):
		writeError(w, http.StatusNotFound, types.ErrDateOutOfRange)
	case errors.Is(err, types.ErrNoTableAvailable):
		writeError(w, http.StatusServiceUnavailable, errNoTableAvailable)
	case errors.As(err, &parseErr):
		s.logger.Error(
			"rate table malformed",
			"date", parseErr.Date,
			"err", err,
		)

		writeError(w, http.StatusBadGateway, errTableMalformed)
	case errors.Is(err, types.ErrRemoteUnavailable):
		writeError(w, http.StatusNotFound, errTableNotPublished)
	default:
		s.logger.Debug(
			fallback.Error(),
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func newTableResponse(t *types.RateTable) *TableResponse {
	return &TableResponse{
		Date:  t.Date,
		Rates: t.Rates,
	}
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, errInvalidAmount
	}

	return v, nil
}

func parseRate(raw string) (*float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	rate, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errInvalidRate
	}

	return &rate, nil
}

// writeJSON encodes the response before writing the status,
// so encoding failures are reported as such
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "unable to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, _ = w.Write(buf.Bytes()) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
