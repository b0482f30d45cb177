package safe

import (
	"fmt"

	"artifact-detector/internal/errs"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation %s: %w", operation, errs.ErrInvalidInput)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation %s: %w", operation, errs.ErrInvalidInput)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation %s: %w", operation, errs.ErrInvalidInput)
	}

	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation %s: %w", width, height, operation, errs.ErrInvalidArgument)
	}

	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation %s: %w", width, height, operation, errs.ErrInvalidArgument)
	}

	return nil
}
