package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
)

const (
	msgSomethingWrong       = "Something went wrong"
	msgInvalidToken         = "Invalid token"
	msgRegisterFields       = "Please provide name, email and password"
	msgLoginFields          = "Please provide email and password"
	msgEmailTaken           = "Email already registered"
	msgInvalidCredentials   = "Invalid email or password"
	msgRegistered           = "User registered successfully"
	msgLoggedIn             = "User logged in successfully"
	msgBookCreated          = "Book created"
	msgBookUpdated          = "Book updated"
	msgBookDeleted          = "Book deleted"
	msgBookNotFound         = "Book not found"
	msgCouldNotCreate       = "Could not create book"
	msgCouldNotUpdate       = "Could not update book"
	msgCouldNotDelete       = "Could not delete book"
	msgCouldNotList         = "Could not fetch books"
	msgInvalidBookID        = "Invalid book id"
	msgFileTooLarge         = "File too large"
	msgFileEmpty            = "Uploaded file is empty"
	msgFileNotFound         = "File not found"
	msgInvalidRequestBody   = "Invalid request body"
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// statusFor maps a service error onto an HTTP status. Errors that carry no
// known sentinel are infrastructure failures and get the route's fallback.
func statusFor(err error, fallback int) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe), errors.Is(err, attachments.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrorValidation), errors.Is(err, attachments.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInvalidCredentials), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return fallback
	}
}

// messageFor returns the client-facing text for err. Only validation errors
// pass their own text through; everything else uses fixed wording.
func messageFor(err error, fallback string) string {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe), errors.Is(err, attachments.ErrTooLarge):
		return msgFileTooLarge
	case errors.Is(err, attachments.ErrEmptyFile):
		return msgFileEmpty
	case errors.Is(err, common.ErrorValidation):
		msg := err.Error()
		if i := strings.LastIndex(msg, common.ErrorValidation.Error()+": "); i >= 0 {
			msg = msg[i+len(common.ErrorValidation.Error())+2:]
		}
		return msg
	default:
		return fallback
	}
}
