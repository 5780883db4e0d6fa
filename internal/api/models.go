package api

// Common request/response structures

// SegmentPayload is one document segment in a scheme creation request.
type SegmentPayload struct {
	PlanNumber    int    `json:"planNumber"    validate:"gte=0"`
	SchemeContent string `json:"schemeContent" validate:"required"`
}

// CreateSchemeRequest defines the payload for the scheme creation endpoint.
type CreateSchemeRequest struct {
	ID       int64            `json:"id"       validate:"required,gt=0"`
	Title    string           `json:"title"    validate:"required,max=500"`
	Document []SegmentPayload `json:"document" validate:"required,min=1,dive"`
}

// BatchItemPayload carries the per-key texts for one scheme index of a new
// batch. Keys with empty text get no task.
type BatchItemPayload struct {
	SchemeIndex int    `json:"schemeIndex" validate:"gte=0"`
	Begin       string `json:"begin"`
	Middle      string `json:"middle"`
	End         string `json:"end"`
}

// CreateBatchRequest defines the payload for starting a generation batch.
type CreateBatchRequest struct {
	Items       []BatchItemPayload `json:"items"       validate:"required,min=1,dive"`
	VoiceName   string             `json:"voiceName"   validate:"max=100"`
	Provider    string             `json:"provider"    validate:"max=100"`
	KeepHistory bool               `json:"keepHistory"`
}

// TextUpdatePayload replaces the text of one existing task.
type TextUpdatePayload struct {
	SchemeIndex int    `json:"schemeIndex" validate:"gte=0"`
	SegmentKey  string `json:"segmentKey"  validate:"required,oneof=begin middle end"`
	NewText     string `json:"newText"     validate:"required"`
}

// UpdateBatchRequest defines the payload for the selective text update endpoint.
type UpdateBatchRequest struct {
	Updates []TextUpdatePayload `json:"updates" validate:"required,min=1,dive"`
}

// SegmentRefPayload names one (schemeIndex, segmentKey) slot of a scheme.
type SegmentRefPayload struct {
	SchemeIndex int    `json:"schemeIndex" validate:"gte=0"`
	SegmentKey  string `json:"segmentKey"  validate:"required,oneof=begin middle end"`
}

// RetryRequest defines the payload for the selective retry endpoint.
type RetryRequest struct {
	FailedIndexes []SegmentRefPayload `json:"failedIndexes" validate:"required,min=1,dive"`
	VoiceName     string              `json:"voiceName"     validate:"max=100"`
	Provider      string              `json:"provider"      validate:"max=100"`
}

// RetryResponse reports how many slots a retry request requeued.
type RetryResponse struct {
	Retried int `json:"retried"`
}
