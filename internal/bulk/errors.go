package bulk

import "errors"

var (
	// ErrValidation marks a request rejected before any operation exists.
	ErrValidation = errors.New("invalid bulk request")

	// ErrItemInvalid marks a single item that could not be applied.
	ErrItemInvalid = errors.New("invalid item")

	ErrOperationNotFound = errors.New("bulk operation not found")
	ErrOperationFinished = errors.New("bulk operation already finished")

	ErrUndoStackEmpty = errors.New("nothing to undo")
	ErrUndoNotFound   = errors.New("operation is not on the undo stack")
	ErrNotReversible  = errors.New("operation cannot be undone")
	ErrUndoInProgress = errors.New("undo already in progress for this operation")

	ErrTemplateNotFound  = errors.New("template not found")
	ErrTemplateForbidden = errors.New("template belongs to another user")
)
