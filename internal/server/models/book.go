package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bookshelf/internal/common"
)

// Book is a catalogue record. Image is the stored attachment path
// ("uploads/<name>") or nil when the record has none.
type Book struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Publisher string  `json:"publisher"`
	Year      int     `json:"year"`
	Pages     int     `json:"pages"`
	Image     *string `json:"image"`
}

// BookInput is the client-writable part of a Book, bound from either a
// multipart form or a JSON body.
type BookInput struct {
	Title     string  `form:"title" json:"title"`
	Author    string  `form:"author" json:"author"`
	Publisher string  `form:"publisher" json:"publisher"`
	Year      FlexInt `form:"year" json:"year"`
	Pages     FlexInt `form:"pages" json:"pages"`
}

// FlexInt is an int that decodes from a JSON number or a numeric string.
// Form values are always strings and bind through the int kind.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: %s is not an integer", common.ErrorValidation, s)
	}
	*n = FlexInt(v)
	return nil
}

// Validate trims text fields in place and checks required values.
// Errors wrap common.ErrorValidation.
func (in *BookInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Publisher = strings.TrimSpace(in.Publisher)

	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	case in.Author == "":
		return fmt.Errorf("%w: author is required", common.ErrorValidation)
	case in.Year < 0:
		return fmt.Errorf("%w: year must not be negative", common.ErrorValidation)
	case in.Pages < 0:
		return fmt.Errorf("%w: pages must not be negative", common.ErrorValidation)
	}
	return nil
}

// Apply copies the input onto b, leaving ID and Image untouched.
func (in BookInput) Apply(b *Book) {
	b.Title = in.Title
	b.Author = in.Author
	b.Publisher = in.Publisher
	b.Year = int(in.Year)
	b.Pages = int(in.Pages)
}
