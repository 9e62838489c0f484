package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared request validator for all controllers.
var validate = validator.New()

// formatTimePtr renders an optional timestamp as RFC3339 UTC, or nil.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
