/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package money converts between the decimal amounts used at API boundaries
// and the int64 minor units (cents) stored in the database.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrOverflow        = errors.New("amount overflows minor units")
)

// ToMinor rounds d to two decimal places and returns it in cents. Amounts
// outside the int64 range fail with ErrOverflow.
func ToMinor(d decimal.Decimal) (int64, error) {
	cents := d.Round(2).Shift(2).BigInt()
	if !cents.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return cents.Int64(), nil
}

// FromMinor returns cents as a two-place decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Round normalizes d to the two-place precision the ledger stores.
func Round(d decimal.Decimal) (decimal.Decimal, error) {
	minor, err := ToMinor(d)
	if err != nil {
		return decimal.Zero, err
	}
	return FromMinor(minor), nil
}

// MulMinor multiplies a unit price in cents by a quantity, failing instead of wrapping.
func MulMinor(priceMinor, quantity int64) (int64, error) {
	if priceMinor < 0 || quantity < 0 {
		return 0, fmt.Errorf("%w: negative factor", ErrInvalidAmount)
	}
	if quantity != 0 && priceMinor > math.MaxInt64/quantity {
		return 0, ErrOverflow
	}
	return priceMinor * quantity, nil
}

// ParseMinor parses a user supplied amount such as "12.5" into cents.
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	switch trimmed[0] {
	case '-':
		sign = -1
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	parts := strings.SplitN(trimmed, ".", 2)
	wholePart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if wholePart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if !isDigits(wholePart) {
		return 0, ErrInvalidAmount
	}
	if len(fracPart) > 2 {
		return 0, ErrTooManyDecimals
	}
	if fracPart != "" && !isDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmount, ErrOverflow)
	}
	frac := int64(0)
	if len(fracPart) == 1 {
		frac = int64(fracPart[0]-'0') * 10
	} else if len(fracPart) == 2 {
		frac, _ = strconv.ParseInt(fracPart, 10, 64)
	}
	if whole > (math.MaxInt64-frac)/100 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmount, ErrOverflow)
	}
	return sign * (whole*100 + frac), nil
}

// Parse is ParseMinor returning a decimal.
func Parse(input string) (decimal.Decimal, error) {
	minor, err := ParseMinor(input)
	if err != nil {
		return decimal.Zero, err
	}
	return FromMinor(minor), nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
