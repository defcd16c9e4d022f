// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Parse failures are reported as core validation errors so they surface as
// 400 responses with one message per problem.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

const (
	monthLayout = "2006-01"
	dateLayout  = time.DateOnly
)

// ParseMonth reads the month of a request from "month" (YYYY-MM) or "date"
// (YYYY-MM-DD), defaulting to now.
func ParseMonth(r *http.Request, now time.Time) (time.Time, error) {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		t, err := time.Parse(monthLayout, v)
		if err != nil {
			return time.Time{}, core.NewValidationError("invalid month '" + v + "': expected YYYY-MM")
		}
		return t, nil
	}
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, core.NewValidationError("invalid date '" + v + "': expected YYYY-MM-DD")
		}
		return t, nil
	}
	return now.UTC(), nil
}

// ParseIntent reads the "filter" query parameter.
func ParseIntent(r *http.Request) (core.FilterIntent, error) {
	return core.ParseFilterIntent(r.URL.Query().Get("filter"))
}

// ParseQueryText reads the free text search parameter "q".
func ParseQueryText(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("q"))
}

// PathID reads a UUID path wildcard.
func PathID(r *http.Request, name string) (uuid.UUID, error) {
	v := r.PathValue(name)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, core.NewValidationError("invalid " + name + " '" + v + "'")
	}
	return id, nil
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return core.NewValidationError("request body too large")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("request body is empty")
		default:
			return core.NewValidationError("invalid request body: " + err.Error())
		}
	}
	if dec.More() {
		return core.NewValidationError("invalid request body: unexpected data after object")
	}
	return nil
}

// fieldParser collects every malformed field of a request body.
type fieldParser struct {
	v core.ValidationError
}

func (p *fieldParser) id(name, value string) uuid.UUID {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		p.v.Add("invalid " + name + " '" + value + "'")
		return uuid.Nil
	}
	return id
}

func (p *fieldParser) requiredID(name, value string) uuid.UUID {
	if strings.TrimSpace(value) == "" {
		p.v.Add(name + " is required")
		return uuid.Nil
	}
	return p.id(name, value)
}

func (p *fieldParser) amount(name, value string) decimal.Decimal {
	d, err := core.ParseAmount(value)
	if err != nil {
		p.v.Add("invalid " + name + " '" + strings.TrimSpace(value) + "'")
	}
	return d
}

// optionalAmount treats an empty value as zero.
func (p *fieldParser) optionalAmount(name, value string) decimal.Decimal {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero
	}
	return p.amount(name, value)
}

func (p *fieldParser) date(name, value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback.UTC()
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		p.v.Add("invalid " + name + " '" + value + "': expected YYYY-MM-DD")
	}
	return t
}

func (p *fieldParser) month(name, value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback.UTC()
	}
	t, err := time.Parse(monthLayout, value)
	if err != nil {
		p.v.Add("invalid " + name + " '" + value + "': expected YYYY-MM")
	}
	return t
}

func (p *fieldParser) err() error {
	return p.v.OrNil()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
