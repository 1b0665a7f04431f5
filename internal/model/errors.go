// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels matched by the concrete error types below.
var (
	ErrNotFound            = errors.New("not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrMapInvalid          = errors.New("planting site map is invalid")
	ErrPlantedAreaConflict = errors.New("cannot delete area with recorded plantings")
	ErrSeasonConflict      = errors.New("invalid planting season")
)

// NotFoundError is returned when an entity does not exist or is not visible
// to the caller. The two cases are reported identically.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for any typed identifier.
func NotFound[T ~int64](entity string, id T) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: int64(id)}
}

// NotAuthorizedError is returned when a capability check fails.
type NotAuthorizedError struct {
	Action string
	Entity string
	ID     int64
}

func (e *NotAuthorizedError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("not authorized to %s %s", e.Action, e.Entity)
	}
	return fmt.Sprintf("not authorized to %s %s %d", e.Action, e.Entity, e.ID)
}

// Is allows errors.Is(err, ErrNotAuthorized).
func (e *NotAuthorizedError) Is(target error) bool { return target == ErrNotAuthorized }

// MapProblem names one offending entity in a MapInvalidError.
type MapProblem struct {
	Entity string // e.g. `zone "North"` or "plot 17"
	Reason string
}

func (p MapProblem) String() string {
	return p.Entity + ": " + p.Reason
}

// MapInvalidError reports structural violations in a site tree.
type MapInvalidError struct {
	Problems []MapProblem
}

func (e *MapInvalidError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "planting site map is invalid: " + strings.Join(parts, "; ")
}

// Is allows errors.Is(err, ErrMapInvalid).
func (e *MapInvalidError) Is(target error) bool { return target == ErrMapInvalid }

// PlantedAreaConflictError is returned when an edit would delete a subzone
// that has recorded plantings.
type PlantedAreaConflictError struct {
	SubzoneIDs []SubzoneID
	Names      []string
}

func (e *PlantedAreaConflictError) Error() string {
	return fmt.Sprintf("cannot delete planted subzones: %s", strings.Join(e.Names, ", "))
}

// Is allows errors.Is(err, ErrPlantedAreaConflict).
func (e *PlantedAreaConflictError) Is(target error) bool {
	return target == ErrPlantedAreaConflict
}

// SeasonProblem names a planting season validation failure.
type SeasonProblem int

const (
	SeasonTooShort SeasonProblem = iota + 1
	SeasonTooLong
	SeasonOverlaps
	SeasonEndsInPast
	SeasonTooFarInFuture
)

func (p SeasonProblem) String() string {
	switch p {
	case SeasonTooShort:
		return "planting season is too short"
	case SeasonTooLong:
		return "planting season is too long"
	case SeasonOverlaps:
		return "planting seasons overlap"
	case SeasonEndsInPast:
		return "planting season ends in the past"
	case SeasonTooFarInFuture:
		return "planting season starts too far in the future"
	default:
		return "invalid planting season"
	}
}

// SeasonError describes a rejected planting season.
type SeasonError struct {
	Problem SeasonProblem
	Start   time.Time
	End     time.Time
}

func (e *SeasonError) Error() string {
	return fmt.Sprintf("%s: %s to %s", e.Problem, e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}

// Is allows errors.Is(err, ErrSeasonConflict).
func (e *SeasonError) Is(target error) bool { return target == ErrSeasonConflict }
