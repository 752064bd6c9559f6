package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/law-makers/ammocrawl/internal/render"
)

func TestEngineErrorIs(t *testing.T) {
	err := navFailure("https://shop.test/9mm", fmt.Errorf("navigate: %w", render.ErrTimeout))

	if !errors.Is(err, ErrNavigation) {
		t.Error("navigation failure should match ErrNavigation")
	}
	if !errors.Is(err, render.ErrTimeout) {
		t.Error("navigation failure should unwrap to the renderer error")
	}
	if errors.Is(err, ErrSiteFailure) {
		t.Error("navigation failure must not match ErrSiteFailure")
	}
	if !errors.Is(err, &EngineError{Code: ErrCodeNavigation}) {
		t.Error("errors with the same code should match")
	}

	wrapped := fmt.Errorf("site x: %w", err)
	if Code(wrapped) != ErrCodeNavigation {
		t.Errorf("Code = %q", Code(wrapped))
	}
	if Code(errors.New("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

func TestEngineErrorMessage(t *testing.T) {
	err := NewEngineError(ErrCodeStructureMismatch, "container not found", nil).WithDetail("site", "x")
	if got := err.Error(); got != "STRUCTURE_MISMATCH: container not found" {
		t.Errorf("Error() = %q", got)
	}
	if err.Details["site"] != "x" {
		t.Errorf("details = %v", err.Details)
	}
}
