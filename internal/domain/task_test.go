package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewSpeechTask(t *testing.T) {
	t.Parallel() // Enable parallel execution
	// Test valid task creation
	task, err := NewSpeechTask(42, 0, SegmentKeyBegin, "hello world", "en-US-Standard-A", "acme")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.SchemeID != 42 {
		t.Errorf("Expected scheme ID 42, got %d", task.SchemeID)
	}

	if task.Status != TaskStatusPending {
		t.Errorf("Expected status %s, got %s", TaskStatusPending, task.Status)
	}

	if task.RetryCount != 0 {
		t.Errorf("Expected retry count 0, got %d", task.RetryCount)
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Empty text is allowed: retry placeholders are created without text.
	if _, err := NewSpeechTask(42, 0, SegmentKeyEnd, "", "v", "p"); err != nil {
		t.Errorf("Expected no error for empty text, got %v", err)
	}

	// Test invalid scheme ID
	if _, err := NewSpeechTask(0, 0, SegmentKeyBegin, "x", "v", "p"); err != ErrInvalidTaskScheme {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskScheme, err)
	}

	// Test negative index
	if _, err := NewSpeechTask(42, -1, SegmentKeyBegin, "x", "v", "p"); err != ErrNegativeTaskIndex {
		t.Errorf("Expected error %v, got %v", ErrNegativeTaskIndex, err)
	}

	// Test invalid segment key
	if _, err := NewSpeechTask(42, 0, SegmentKey("intro"), "x", "v", "p"); !errors.Is(err, ErrInvalidSegmentKey) {
		t.Errorf("Expected invalid segment key error, got %v", err)
	}
}

func TestSpeechTaskValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution
	validTask := SpeechTask{
		ID:          uuid.New(),
		SchemeID:    1,
		SchemeIndex: 0,
		SegmentKey:  SegmentKeyMiddle,
		Status:      TaskStatusPending,
	}

	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	invalid := validTask
	invalid.ID = uuid.Nil
	if err := invalid.Validate(); err != ErrEmptyTaskID {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskID, err)
	}

	invalid = validTask
	invalid.Status = TaskStatus(7)
	if err := invalid.Validate(); err != ErrInvalidTaskStatus {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskStatus, err)
	}

	invalid = validTask
	invalid.RetryCount = -1
	if err := invalid.Validate(); err != ErrNegativeRetryCount {
		t.Errorf("Expected error %v, got %v", ErrNegativeRetryCount, err)
	}
}

func TestSpeechTaskTransitions(t *testing.T) {
	t.Parallel() // Enable parallel execution
	task, err := NewSpeechTask(42, 1, SegmentKeyEnd, "some text", "voice", "acme")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.RetryCount = 2
	task.ErrorLog = "attempt 2: timeout"

	task.MarkSuccess("nats://audio/42-1-end.wav")
	if task.Status != TaskStatusSuccess {
		t.Errorf("Expected status %s, got %s", TaskStatusSuccess, task.Status)
	}
	if task.AudioURL != "nats://audio/42-1-end.wav" {
		t.Errorf("Expected audio URL set, got %q", task.AudioURL)
	}
	if task.RetryCount != 0 {
		t.Errorf("Expected retry count reset, got %d", task.RetryCount)
	}
	if task.ErrorLog != "" {
		t.Errorf("Expected error log cleared, got %q", task.ErrorLog)
	}

	task.MarkFailed("failed after 3 attempts: provider unavailable")
	if task.Status != TaskStatusFailed {
		t.Errorf("Expected status %s, got %s", TaskStatusFailed, task.Status)
	}
	if task.ErrorLog == "" {
		t.Error("Expected error log recorded")
	}

	task.MarkDeprecated("superseded by new batch")
	if task.Status != TaskStatusDeprecated {
		t.Errorf("Expected status %s, got %s", TaskStatusDeprecated, task.Status)
	}
}

func TestSpeechTaskResets(t *testing.T) {
	t.Parallel() // Enable parallel execution
	task, err := NewSpeechTask(42, 1, SegmentKeyBegin, "old text", "voice", "acme")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.MarkSuccess("nats://audio/42-1-begin.wav")

	task.ResetForText("new text")
	if task.Status != TaskStatusPending {
		t.Errorf("Expected status %s, got %s", TaskStatusPending, task.Status)
	}
	if task.TextContent != "new text" {
		t.Errorf("Expected text replaced, got %q", task.TextContent)
	}
	if task.RetryCount != 0 {
		t.Errorf("Expected retry count reset, got %d", task.RetryCount)
	}
	if task.AudioURL != "" {
		t.Errorf("Expected audio URL cleared, got %q", task.AudioURL)
	}

	task.MarkFailed("failed after 3 attempts: provider unavailable")
	task.RetryCount = 3

	task.ResetForRetry()
	if task.Status != TaskStatusPending {
		t.Errorf("Expected status %s, got %s", TaskStatusPending, task.Status)
	}
	if task.RetryCount != 4 {
		t.Errorf("Expected retry count incremented, got %d", task.RetryCount)
	}
	if task.TextContent != "new text" {
		t.Errorf("Expected text kept, got %q", task.TextContent)
	}
	if task.ErrorLog != "" {
		t.Errorf("Expected error log cleared, got %q", task.ErrorLog)
	}
}

func TestSpeechTaskRecordAttemptFailure(t *testing.T) {
	t.Parallel() // Enable parallel execution
	task, err := NewSpeechTask(42, 1, SegmentKeyBegin, "text", "voice", "acme")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task.RecordAttemptFailure("provider timeout")
	if task.Status != TaskStatusPending {
		t.Errorf("Expected status to stay %s, got %s", TaskStatusPending, task.Status)
	}
	if task.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", task.RetryCount)
	}
	if task.ErrorLog != "attempt 1: provider timeout" {
		t.Errorf("Expected attempt log, got %q", task.ErrorLog)
	}

	task.RecordAttemptFailure("provider timeout")
	if task.ErrorLog != "attempt 2: provider timeout" {
		t.Errorf("Expected attempt log, got %q", task.ErrorLog)
	}
}

func TestParseSegmentKey(t *testing.T) {
	t.Parallel() // Enable parallel execution
	for _, s := range []string{"begin", "middle", "end"} {
		key, err := ParseSegmentKey(s)
		if err != nil {
			t.Errorf("Expected no error for %q, got %v", s, err)
		}
		if string(key) != s {
			t.Errorf("Expected key %q, got %q", s, key)
		}
	}

	for _, s := range []string{"", "BEGIN", "intro", "mid"} {
		if _, err := ParseSegmentKey(s); !errors.Is(err, ErrInvalidSegmentKey) {
			t.Errorf("Expected invalid segment key error for %q, got %v", s, err)
		}
	}
}
