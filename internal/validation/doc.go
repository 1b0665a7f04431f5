// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built once with the custom tags site
// requests need and shared by every caller. Failures come back as a
// *RequestValidationError listing each offending field with a readable
// message.
//
// # Quick Start
//
//	type RenameRequest struct {
//	    Name string `validate:"required,max=100,trimmed"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr
//	}
//
// errors.Is(err, validation.ErrInvalidRequest) matches any validation
// failure.
//
// # Custom Tags
//
//   - srid: coordinate system is 0 (site-local meters), 4326 or 3857
//   - trimmed: string has no leading or trailing whitespace
//
// The built-in timezone and iso3166_1_alpha2 tags cover IANA zone names and
// country codes.
//
// # Error Message Translation
//
//	required   -> "Name is required"
//	max=100    -> "Name must be at most 100 characters"
//	gte=1      -> "Count must be greater than or equal to 1"
//	timezone   -> "TimeZone must be a valid IANA time zone"
//	srid       -> "SRID must be one of 0, 4326 or 3857"
//	trimmed    -> "Name must not start or end with whitespace"
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use. The
// validator caches struct reflection data after the first call per type.
package validation
