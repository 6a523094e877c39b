package web

import (
	"errors"
	"html/template"
	"net/url"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/page"
)

const (
	msgNotFound    = "Раздел не найден"
	msgUnavailable = "Каталог временно недоступен, попробуйте обновить страницу"
)

// CatalogView is the catalog page's view model. A nil Section or Paginator
// and a false ShowGrid leave the corresponding block out.
type CatalogView struct {
	Section   *catalog.Section
	ShowGrid  bool
	Cards     []Card
	Paginator *Paginator
	Loading   bool
	Error     string
}

type Card struct {
	Href       string
	Image      string
	HoverImage string
	Article    string
	Rating     []Star
	Name       string
	Color      string
	Price      template.HTML
}

type Star struct {
	Current bool
}

// NewCatalogView maps controller state to markup inputs. path is the
// current route path, used for paginator links.
func NewCatalogView(st page.State, path, assetsBase string) CatalogView {
	v := CatalogView{
		Section: st.Section,
		Loading: st.Loading,
	}
	if st.Items != nil {
		v.ShowGrid = true
		sectionCode := ""
		if st.Section != nil {
			sectionCode = st.Section.Code
		}
		v.Cards = make([]Card, 0, len(st.Items))
		for _, it := range st.Items {
			v.Cards = append(v.Cards, newCard(it, sectionCode, assetsBase))
		}
	}
	if st.NavParams != nil {
		v.Paginator = NewPaginator(*st.NavParams, path)
	}
	if st.Err != nil {
		v.Error = msgUnavailable
		if errors.Is(st.Err, catalog.ErrNotFound) {
			v.Error = msgNotFound
		}
	}
	return v
}

func newCard(it catalog.Item, sectionCode, assetsBase string) Card {
	c := Card{
		Href:    "/" + url.PathEscape(sectionCode) + "/" + url.PathEscape(it.Code),
		Image:   assetsBase + it.PreviewPicture,
		Article: it.Article(),
		Name:    it.Name,
		Color:   it.ColorName(),
		// price markup comes pre-rendered from the catalog API
		Price: template.HTML(it.Price.HTML),
	}
	if it.HoverPicture != "" {
		c.HoverImage = assetsBase + it.HoverPicture
	}
	if r := it.Properties.RatingReview.Value; r.Present() {
		c.Rating = RatingStars(r)
	}
	return c
}

// RatingStars returns five stars with the one at the rating's integer
// value marked current. Out-of-range or non-numeric ratings mark none.
func RatingStars(r catalog.Rating) []Star {
	n := r.Int()
	stars := make([]Star, 5)
	for i := range stars {
		stars[i].Current = i+1 == n
	}
	return stars
}

// Paginator is the page list under the grid.
type Paginator struct {
	Current int
	Total   int
	Prev    string
	Next    string
	Links   []PageLink
}

// PageLink is a page number or, with Gap set, an ellipsis.
type PageLink struct {
	Number  int
	Href    string
	Current bool
	Gap     bool
}

const pagerWindow = 2

func NewPaginator(nav catalog.NavParams, path string) *Paginator {
	size := int(nav.Size)
	total := 1
	if size > 0 && nav.TotalCount > 0 {
		total = (int(nav.TotalCount) + size - 1) / size
	}
	cur := min(max(int(nav.Page), 1), total)

	p := &Paginator{Current: cur, Total: total}
	if cur > 1 {
		p.Prev = pageHref(path, cur-1)
	}
	if cur < total {
		p.Next = pageHref(path, cur+1)
	}
	if total == 1 {
		return p
	}

	last := 0
	add := func(n int) {
		if last != 0 && n > last+1 {
			p.Links = append(p.Links, PageLink{Gap: true})
		}
		p.Links = append(p.Links, PageLink{Number: n, Href: pageHref(path, n), Current: n == cur})
		last = n
	}
	add(1)
	for n := max(2, cur-pagerWindow); n <= min(total-1, cur+pagerWindow); n++ {
		add(n)
	}
	add(total)
	return p
}

func pageHref(path string, n int) string {
	return path + "?page=" + strconv.Itoa(n)
}
