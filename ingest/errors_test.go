package ingest

import (
	"errors"
	"testing"
)

func TestStorageError_IsMatchesByKind(t *testing.T) {
	err := NewStorageError(StorageNotFound, "get", "bucket/key", errors.New("boom"))
	if !errors.Is(err, ErrStorageNotFound) {
		t.Error("expected errors.Is to match ErrStorageNotFound by kind")
	}
	if errors.Is(err, ErrStorageAuth) {
		t.Error("did not expect a match against a different kind")
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewStorageError(StorageTransient, "list", "", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
}

func TestConfigError_Error(t *testing.T) {
	withKey := &ConfigError{Key: "some.key", Message: "must be set"}
	if withKey.Error() == "" {
		t.Error("expected a non-empty message")
	}
	withoutKey := &ConfigError{Message: "no key here"}
	if withoutKey.Error() == "" {
		t.Error("expected a non-empty message")
	}
}

func TestStateError_Error(t *testing.T) {
	err := &StateError{State: "clean", Op: "poll"}
	if err.Error() == "" {
		t.Error("expected a non-empty message")
	}
}

func TestInternalInvariant(t *testing.T) {
	err := InternalInvariant("something impossible happened")
	if !IsInternalInvariant(err) {
		t.Error("expected IsInternalInvariant to recognize its own error")
	}
	if IsInternalInvariant(errors.New("unrelated")) {
		t.Error("did not expect an unrelated error to be recognized")
	}
}
