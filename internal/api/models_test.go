package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planvox/planvox-api/internal/api/shared"
)

func TestCreateSchemeRequestValidation(t *testing.T) {
	valid := func() CreateSchemeRequest {
		return CreateSchemeRequest{
			ID:    42,
			Title: "Chapter 1",
			Document: []SegmentPayload{
				{PlanNumber: 0, SchemeContent: "Opening paragraph."},
				{PlanNumber: 1, SchemeContent: "Second paragraph."},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*CreateSchemeRequest)
		wantErr bool
	}{
		{
			name:   "valid request",
			mutate: func(r *CreateSchemeRequest) {},
		},
		{
			name:    "zero id",
			mutate:  func(r *CreateSchemeRequest) { r.ID = 0 },
			wantErr: true,
		},
		{
			name:    "negative id",
			mutate:  func(r *CreateSchemeRequest) { r.ID = -1 },
			wantErr: true,
		},
		{
			name:    "missing title",
			mutate:  func(r *CreateSchemeRequest) { r.Title = "" },
			wantErr: true,
		},
		{
			name:    "title too long",
			mutate:  func(r *CreateSchemeRequest) { r.Title = strings.Repeat("a", 501) },
			wantErr: true,
		},
		{
			name:    "nil document",
			mutate:  func(r *CreateSchemeRequest) { r.Document = nil },
			wantErr: true,
		},
		{
			name:    "empty document",
			mutate:  func(r *CreateSchemeRequest) { r.Document = []SegmentPayload{} },
			wantErr: true,
		},
		{
			name: "segment with empty content",
			mutate: func(r *CreateSchemeRequest) {
				r.Document[1].SchemeContent = ""
			},
			wantErr: true,
		},
		{
			name: "segment with negative plan number",
			mutate: func(r *CreateSchemeRequest) {
				r.Document[0].PlanNumber = -1
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(&req)

			err := shared.ValidateRequest(req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBatchRequestValidation(t *testing.T) {
	valid := func() CreateBatchRequest {
		return CreateBatchRequest{
			Items: []BatchItemPayload{
				{SchemeIndex: 0, Begin: "Hello.", Middle: "Body.", End: "Bye."},
			},
			VoiceName: "narrator",
			Provider:  "acme",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*CreateBatchRequest)
		wantErr bool
	}{
		{
			name:   "valid request",
			mutate: func(r *CreateBatchRequest) {},
		},
		{
			name: "empty texts are allowed per item",
			mutate: func(r *CreateBatchRequest) {
				r.Items[0].Begin = ""
				r.Items[0].Middle = ""
				r.Items[0].End = ""
			},
		},
		{
			name:   "voice and provider optional",
			mutate: func(r *CreateBatchRequest) { r.VoiceName = ""; r.Provider = "" },
		},
		{
			name:    "nil items",
			mutate:  func(r *CreateBatchRequest) { r.Items = nil },
			wantErr: true,
		},
		{
			name:    "empty items",
			mutate:  func(r *CreateBatchRequest) { r.Items = []BatchItemPayload{} },
			wantErr: true,
		},
		{
			name: "negative scheme index",
			mutate: func(r *CreateBatchRequest) {
				r.Items[0].SchemeIndex = -1
			},
			wantErr: true,
		},
		{
			name: "voice name too long",
			mutate: func(r *CreateBatchRequest) {
				r.VoiceName = strings.Repeat("v", 101)
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(&req)

			err := shared.ValidateRequest(req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateBatchRequestValidation(t *testing.T) {
	valid := func() UpdateBatchRequest {
		return UpdateBatchRequest{
			Updates: []TextUpdatePayload{
				{SchemeIndex: 2, SegmentKey: "middle", NewText: "Rewritten body."},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*UpdateBatchRequest)
		wantErr bool
	}{
		{
			name:   "valid request",
			mutate: func(r *UpdateBatchRequest) {},
		},
		{
			name:    "nil updates",
			mutate:  func(r *UpdateBatchRequest) { r.Updates = nil },
			wantErr: true,
		},
		{
			name: "unknown segment key",
			mutate: func(r *UpdateBatchRequest) {
				r.Updates[0].SegmentKey = "intro"
			},
			wantErr: true,
		},
		{
			name: "missing segment key",
			mutate: func(r *UpdateBatchRequest) {
				r.Updates[0].SegmentKey = ""
			},
			wantErr: true,
		},
		{
			name: "missing new text",
			mutate: func(r *UpdateBatchRequest) {
				r.Updates[0].NewText = ""
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(&req)

			err := shared.ValidateRequest(req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryRequestValidation(t *testing.T) {
	valid := func() RetryRequest {
		return RetryRequest{
			FailedIndexes: []SegmentRefPayload{
				{SchemeIndex: 0, SegmentKey: "begin"},
				{SchemeIndex: 3, SegmentKey: "end"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*RetryRequest)
		wantErr bool
	}{
		{
			name:   "valid request",
			mutate: func(r *RetryRequest) {},
		},
		{
			name:    "empty failed indexes",
			mutate:  func(r *RetryRequest) { r.FailedIndexes = []SegmentRefPayload{} },
			wantErr: true,
		},
		{
			name: "unknown segment key",
			mutate: func(r *RetryRequest) {
				r.FailedIndexes[1].SegmentKey = "outro"
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(&req)

			err := shared.ValidateRequest(req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
