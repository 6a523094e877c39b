// Package catalog holds the catalog API payload types and the HTTP client
// that fetches one page of a section.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Section identifies the category being browsed.
type Section struct {
	ID   string `json:"ID,omitempty"`
	Code string `json:"CODE"`
	Name string `json:"NAME"`
}

// Item is one product card. Name also matches the "Name" key some API
// versions send, since encoding/json matches keys case-insensitively.
type Item struct {
	ID             string        `json:"ID,omitempty"`
	Code           string        `json:"CODE"`
	Name           string        `json:"NAME"`
	PreviewPicture string        `json:"PREVIEW_PICTURE_RESIZE"`
	HoverPicture   string        `json:"HOVER_PICTURE_RESIZE,omitempty"`
	SelectedData   *SelectedData `json:"SELECTED_DATA,omitempty"`
	Properties     Properties    `json:"PROPERTIES"`
	Color          *Color        `json:"COLOR,omitempty"`
	Price          Price         `json:"PRICE"`
}

type SelectedData struct {
	Article string `json:"ARTICLE,omitempty"`
}

type Properties struct {
	RatingReview struct {
		Value Rating `json:"VALUE"`
	} `json:"RATING_REVIEW"`
}

type Color struct {
	Name string `json:"NAME"`
}

// Price.HTML is pre-rendered markup; it is trusted as sanitized upstream.
type Price struct {
	HTML string `json:"price"`
}

// Article returns the article code or "".
func (it Item) Article() string {
	if it.SelectedData == nil {
		return ""
	}
	return it.SelectedData.Article
}

// ColorName returns the color label or "".
func (it Item) ColorName() string {
	if it.Color == nil {
		return ""
	}
	return it.Color.Name
}

// NavParams drives the paginator.
type NavParams struct {
	TotalCount FlexInt `json:"totalCount"`
	Size       FlexInt `json:"size"`
	Page       FlexInt `json:"page"`
}

// Payload is the body of GET section/<code>/?PAGEN_1=<page>.
type Payload struct {
	Section   *Section   `json:"section"`
	Items     []Item     `json:"items"`
	NavParams *NavParams `json:"navParams"`
}

// Validate reports ErrMalformedPayload when the section is missing. Null
// items are a valid page: the grid is simply not rendered.
func (p *Payload) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: empty body", ErrMalformedPayload)
	case p.Section == nil:
		return fmt.Errorf("%w: missing section", ErrMalformedPayload)
	}
	return nil
}

// Rating keeps the raw rating value, which the API sends either as a
// number or as a string.
type Rating string

func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("false")):
		*r = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Rating(s)
	default:
		*r = Rating(b)
	}
	return nil
}

// Present reports whether the card should show a rating at all. A rating
// of "0" is present and renders as five blank stars.
func (r Rating) Present() bool {
	return strings.TrimSpace(string(r)) != ""
}

// Int parses the leading integer the way the storefront always has:
// "4.5" is 4, "3 stars" is 3, anything without leading digits is 0.
func (r Rating) Int() int {
	s := strings.TrimLeft(string(r), " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// FlexInt decodes from a JSON number or a numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("flexint %q: %w", b, err)
	}
	*n = FlexInt(f)
	return nil
}
