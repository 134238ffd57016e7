// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import (
	"fmt"
	"time"
)

// TradingDate is a parsed calendar date for a batch target. Raw preserves the
// exact string the caller supplied; it is the natural key of the Date node.
type TradingDate struct {
	Raw   string
	Year  int
	Month int
	Day   int
}

// Quarter reports which calendar quarter the date falls in.
func (d TradingDate) Quarter() int {
	return (d.Month-1)/3 + 1
}

// ParseTradingDate accepts the 8-digit YYYYMMDD form or the ISO YYYY-MM-DD form.
func ParseTradingDate(raw string) (TradingDate, error) {
	layout := "20060102"
	if len(raw) == 10 {
		layout = "2006-01-02"
	}

	parsed, err := time.Parse(layout, raw)
	if err != nil {
		return TradingDate{}, fmt.Errorf("%w: bad date %q: %s", ErrMalformedRecord, raw, err)
	}

	return TradingDate{
		Raw:   raw,
		Year:  parsed.Year(),
		Month: int(parsed.Month()),
		Day:   parsed.Day(),
	}, nil
}

// DateRange expands an inclusive YYYYMMDD range into one date string per
// calendar day.
func DateRange(start string, end string) ([]string, error) {
	startDate, err := time.Parse("20060102", start)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start date %q: %s", ErrMalformedRecord, start, err)
	}

	endDate, err := time.Parse("20060102", end)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end date %q: %s", ErrMalformedRecord, end, err)
	}

	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end date %q precedes start date %q", ErrMalformedRecord, end, start)
	}

	var dates []string
	for current := startDate; !current.After(endDate); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current.Format("20060102"))
	}

	return dates, nil
}
