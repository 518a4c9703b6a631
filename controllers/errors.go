package controllers

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var (
	ErrTableNotFound      = &CustomError{"Table could not be resolved"}
	ErrSessionNotFound    = &CustomError{"No active session for this table"}
	ErrCartNotFound       = &CustomError{"Cart not found or no longer active"}
	ErrInvalidQuantity    = &CustomError{"Quantity must be at least 1"}
	ErrInvalidSharing     = &CustomError{"Invalid sharing annotation"}
	ErrEmptySharedWith    = &CustomError{"Shared-with set must not be empty"}
	ErrUnknownCustomize   = &CustomError{"Unknown customization for this product"}
	ErrTooManySelections  = &CustomError{"Too many selections for customization group"}
	ErrParticipantMissing = &CustomError{"Participant is not part of this session"}
	ErrEmptyCart          = &CustomError{"Cart has no items"}
)
