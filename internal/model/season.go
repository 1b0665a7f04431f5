// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"sort"
	"time"
)

// PlantingSeason is an inclusive range of calendar dates. Dates are stored
// as midnight UTC; only the year, month and day are meaningful.
type PlantingSeason struct {
	ID        SeasonID  `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
}

// SeasonRules bounds acceptable planting seasons.
type SeasonRules struct {
	MinDays         int
	MaxDays         int
	MaxDaysInFuture int
}

// DefaultSeasonRules returns the limits used when configuration does not
// override them.
func DefaultSeasonRules() SeasonRules {
	return SeasonRules{MinDays: 28, MaxDays: 365, MaxDaysInFuture: 365}
}

// Date truncates t to a calendar date in UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the given IANA time zone. An
// empty or unknown zone falls back to UTC.
func Today(now time.Time, timeZone string) time.Time {
	loc := time.UTC
	if timeZone != "" {
		if l, err := time.LoadLocation(timeZone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return Date(local.Year(), local.Month(), local.Day())
}

// days returns the inclusive length of the season in days.
func (s PlantingSeason) days() int {
	return int(s.EndDate.Sub(s.StartDate).Hours()/24) + 1
}

// Contains reports whether date falls inside the season.
func (s PlantingSeason) Contains(date time.Time) bool {
	return !date.Before(s.StartDate) && !date.After(s.EndDate)
}

// ValidateSeasons checks a full replacement set of seasons. Seasons whose
// dates match one in existing are exempt from the past and future checks so
// that historical seasons can be resubmitted unchanged. The returned slice is
// sorted by start date with IsActive computed for today.
func ValidateSeasons(desired, existing []PlantingSeason, rules SeasonRules, today time.Time) ([]PlantingSeason, error) {
	unchanged := make(map[[2]time.Time]bool, len(existing))
	for _, s := range existing {
		unchanged[[2]time.Time{s.StartDate, s.EndDate}] = true
	}

	out := make([]PlantingSeason, len(desired))
	copy(out, desired)
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })

	for i := range out {
		s := &out[i]
		if s.EndDate.Before(s.StartDate) || s.days() < rules.MinDays {
			return nil, &SeasonError{Problem: SeasonTooShort, Start: s.StartDate, End: s.EndDate}
		}
		if s.days() > rules.MaxDays {
			return nil, &SeasonError{Problem: SeasonTooLong, Start: s.StartDate, End: s.EndDate}
		}
		if !unchanged[[2]time.Time{s.StartDate, s.EndDate}] {
			if s.EndDate.Before(today) {
				return nil, &SeasonError{Problem: SeasonEndsInPast, Start: s.StartDate, End: s.EndDate}
			}
			if s.StartDate.After(today.AddDate(0, 0, rules.MaxDaysInFuture)) {
				return nil, &SeasonError{Problem: SeasonTooFarInFuture, Start: s.StartDate, End: s.EndDate}
			}
		}
		if i > 0 && !out[i-1].EndDate.Before(s.StartDate) {
			return nil, &SeasonError{Problem: SeasonOverlaps, Start: s.StartDate, End: s.EndDate}
		}
		s.IsActive = s.Contains(today)
	}
	return out, nil
}

// RefreshActive recomputes IsActive for each season.
func RefreshActive(seasons []PlantingSeason, today time.Time) {
	for i := range seasons {
		seasons[i].IsActive = seasons[i].Contains(today)
	}
}
