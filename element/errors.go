package element

import "errors"

var (
	ErrUnknownDiscriminant  = errors.New("element: unknown discriminant")
	ErrTruncatedInput       = errors.New("element: truncated input")
	ErrInvalidReferenceKind = errors.New("element: invalid reference payload")
	ErrInvalidFieldElement  = errors.New("element: invalid field element")
)
