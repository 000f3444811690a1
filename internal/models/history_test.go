package models

import (
	"errors"
	"testing"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
)

func TestSaveHistoryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SaveHistoryRequest
		wantErr bool
	}{
		{
			name: "Valid snapshot",
			req: SaveHistoryRequest{
				IPInfo:   &IPInfo{IP: "203.0.113.9", CountryCode: "CA"},
				Advisory: AdvisoryResult{CountryCode: "FR", Score: 3},
			},
		},
		{
			name:    "Missing country code",
			req:     SaveHistoryRequest{Advisory: AdvisoryResult{Score: 1}},
			wantErr: true,
		},
		{
			name:    "Three letter code",
			req:     SaveHistoryRequest{Advisory: AdvisoryResult{CountryCode: "FRA"}},
			wantErr: true,
		},
		{
			name:    "Score out of range",
			req:     SaveHistoryRequest{Advisory: AdvisoryResult{CountryCode: "FR", Score: 7}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestHistoryQuery_Normalize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{5, 5},
		{1000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := (HistoryQuery{Limit: tt.in}).Normalize().Limit; got != tt.want {
			t.Errorf("Normalize(%d)=%d want %d", tt.in, got, tt.want)
		}
	}
}
