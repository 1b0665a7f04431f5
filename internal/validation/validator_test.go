// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type siteRequest struct {
	Name        string `validate:"required,max=100,trimmed"`
	TimeZone    string `validate:"omitempty,timezone"`
	CountryCode string `validate:"omitempty,iso3166_1_alpha2"`
	SRID        int    `validate:"srid"`
	Count       int64  `validate:"gte=1"`
}

func validSiteRequest() siteRequest {
	return siteRequest{Name: "Riverbend", TimeZone: "UTC", CountryCode: "CO", SRID: 4326, Count: 1}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *siteRequest)
	}{
		{"all fields", func(r *siteRequest) {}},
		{"optional fields empty", func(r *siteRequest) { r.TimeZone, r.CountryCode = "", "" }},
		{"local coordinates", func(r *siteRequest) { r.SRID = 0 }},
		{"web mercator", func(r *siteRequest) { r.SRID = 3857 }},
		{"name at limit", func(r *siteRequest) { r.Name = strings.Repeat("a", 100) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSiteRequest()
			tt.mutate(&req)
			if err := ValidateStruct(&req); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *siteRequest)
		wantField string
		wantTag   string
	}{
		{"missing name", func(r *siteRequest) { r.Name = "" }, "Name", "required"},
		{"name too long", func(r *siteRequest) { r.Name = strings.Repeat("a", 101) }, "Name", "max"},
		{"name with padding", func(r *siteRequest) { r.Name = " Riverbend" }, "Name", "trimmed"},
		{"unknown time zone", func(r *siteRequest) { r.TimeZone = "Not/AZone" }, "TimeZone", "timezone"},
		{"lowercase country", func(r *siteRequest) { r.CountryCode = "co" }, "CountryCode", "iso3166_1_alpha2"},
		{"unsupported srid", func(r *siteRequest) { r.SRID = 32618 }, "SRID", "srid"},
		{"zero count", func(r *siteRequest) { r.Count = 0 }, "Count", "gte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSiteRequest()
			tt.mutate(&req)
			err := ValidateStruct(&req)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			found := false
			for _, e := range err.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %s with tag %s, got: %v", tt.wantField, tt.wantTag, err.Errors())
			}
			if !err.HasField(tt.wantField) {
				t.Errorf("expected HasField(%q) to be true", tt.wantField)
			}
		})
	}
}

func TestRequestValidationError_Is(t *testing.T) {
	req := validSiteRequest()
	req.Name = ""

	var err error = ValidateStruct(&req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected errors.Is(err, ErrInvalidRequest), got %v", err)
	}

	var verr *RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *RequestValidationError, got %T", err)
	}
	if len(verr.Errors()) != 1 {
		t.Errorf("expected 1 field error, got %d", len(verr.Errors()))
	}
}

type seasonRequest struct {
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

type seasonsRequest struct {
	Seasons []seasonRequest `validate:"dive"`
}

func TestNestedStructValidation(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	valid := seasonsRequest{Seasons: []seasonRequest{{StartDate: start, EndDate: start.AddDate(0, 2, 0)}}}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("ValidateStruct() returned unexpected error for valid seasons: %v", err)
	}

	invalid := seasonsRequest{Seasons: []seasonRequest{{StartDate: start, EndDate: start.AddDate(0, 0, -1)}}}
	err := ValidateStruct(&invalid)
	if err == nil {
		t.Fatal("ValidateStruct() should have rejected an end date before the start date")
	}
	if !strings.Contains(err.Error(), "EndDate must be after StartDate") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	err := ValidateStruct(nil)
	if err == nil {
		t.Fatal("expected an error for a nil value")
	}
	if err.Errors()[0].Field() != "unknown" {
		t.Errorf("expected unknown field, got %q", err.Errors()[0].Field())
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *siteRequest)
		want   string
	}{
		{"required", func(r *siteRequest) { r.Name = "" }, "Name is required"},
		{"max string", func(r *siteRequest) { r.Name = strings.Repeat("a", 101) }, "Name must be at most 100 characters"},
		{"trimmed", func(r *siteRequest) { r.Name = "Riverbend " }, "Name must not start or end with whitespace"},
		{"timezone", func(r *siteRequest) { r.TimeZone = "Mars/Olympus" }, "TimeZone must be a valid IANA time zone"},
		{"srid", func(r *siteRequest) { r.SRID = 27700 }, "SRID must be one of 0, 4326 or 3857"},
		{"gte", func(r *siteRequest) { r.Count = -5 }, "Count must be greater than or equal to 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSiteRequest()
			tt.mutate(&req)
			err := ValidateStruct(&req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Error() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestErrorMessages_Combined(t *testing.T) {
	req := validSiteRequest()
	req.Name = ""
	req.Count = 0

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Name is required") || !strings.Contains(msg, "; ") {
		t.Errorf("expected combined message, got %q", msg)
	}
}

func BenchmarkValidateStruct(b *testing.B) {
	req := validSiteRequest()
	for i := 0; i < b.N; i++ {
		_ = ValidateStruct(&req)
	}
}
