package httputil

import (
	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"
)

const (
	// DefaultPageLimit applies when a listing request omits ?limit=.
	DefaultPageLimit = 50
	// MaxPageLimit caps HTTP listings; the CLI may ask for larger pages.
	MaxPageLimit = 100
)

// Page is an offset/limit window over a listing endpoint.
type Page struct {
	Offset int `form:"offset" json:"offset"`
	Limit  int `form:"limit"  json:"limit"`
}

// Validate rejects negative offsets and limits outside 1..MaxPageLimit.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(MaxPageLimit)),
	)
}

// ParsePage binds ?offset= and ?limit= from the request. Missing values keep
// offset 0 and DefaultPageLimit.
func ParsePage(c *gin.Context) (Page, error) {
	page := Page{Limit: DefaultPageLimit}
	if err := c.ShouldBindQuery(&page); err != nil {
		return Page{}, validation.NewError("pagination_not_integer", "offset and limit must be integers")
	}
	if err := page.Validate(); err != nil {
		return Page{}, err
	}
	return page, nil
}
