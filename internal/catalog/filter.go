package catalog

import (
	"sort"
	"strings"
	"unicode"

	"vitrine/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SortKey selects the ordering of a product listing
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortNameAsc    SortKey = "name_asc"
	SortNameDesc   SortKey = "name_desc"
	SortBestseller SortKey = "bestseller"
)

// ParseSortKey maps a query value to a SortKey, defaulting to newest
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortOldest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortBestseller:
		return k
	default:
		return SortNewest
	}
}

// ProductFilter narrows a product list. Zero values disable a criterion.
type ProductFilter struct {
	Status         domain.ProductStatus
	CategorySlugs  []string
	Query          string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	InStockOnly    bool
	OnSaleOnly     bool
	NewOnly        bool
	BestsellerOnly bool
}

// Filter returns the products matching every criterion of f, preserving order
func Filter(products []*domain.Product, f ProductFilter) []*domain.Product {
	var slugs map[string]bool
	if len(f.CategorySlugs) > 0 {
		slugs = make(map[string]bool, len(f.CategorySlugs))
		for _, s := range f.CategorySlugs {
			slugs[s] = true
		}
	}
	terms := strings.Fields(Normalize(f.Query))

	out := []*domain.Product{}
	for _, p := range products {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if slugs != nil && !slugs[p.CategorySlug] {
			continue
		}
		price := p.EffectivePrice()
		if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStockOnly && !p.InStock() {
			continue
		}
		if f.OnSaleOnly && !p.OnSale() {
			continue
		}
		if f.NewOnly && !p.IsNew {
			continue
		}
		if f.BestsellerOnly && !p.IsBestseller {
			continue
		}
		if len(terms) > 0 && !matchesAll(p, terms) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesAll(p *domain.Product, terms []string) bool {
	haystack := Normalize(p.Title + " " + p.Slug + " " + p.Description)
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// Normalize lower-cases s and strips diacritics so "Crème" matches "creme"
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Sort orders products in place. Ties keep their previous relative order.
func Sort(products []*domain.Product, key SortKey) {
	var less func(a, b *domain.Product) bool
	switch key {
	case SortOldest:
		less = func(a, b *domain.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriceAsc:
		less = func(a, b *domain.Product) bool { return a.EffectivePrice().LessThan(b.EffectivePrice()) }
	case SortPriceDesc:
		less = func(a, b *domain.Product) bool { return a.EffectivePrice().GreaterThan(b.EffectivePrice()) }
	case SortNameAsc:
		less = func(a, b *domain.Product) bool { return Normalize(a.Title) < Normalize(b.Title) }
	case SortNameDesc:
		less = func(a, b *domain.Product) bool { return Normalize(a.Title) > Normalize(b.Title) }
	case SortBestseller:
		less = func(a, b *domain.Product) bool {
			if a.IsBestseller != b.IsBestseller {
				return a.IsBestseller
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		less = func(a, b *domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// Page is one slice of a listing
type Page struct {
	Items      []*domain.Product `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// Paginate cuts products into pages of pageSize, 1-based
func Paginate(products []*domain.Product, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = 24
	}
	if page <= 0 {
		page = 1
	}
	total := len(products)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]*domain.Product, end-start)
	copy(items, products[start:end])
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Related returns up to n other active products of the same category
func Related(products []*domain.Product, p *domain.Product, n int) []*domain.Product {
	out := []*domain.Product{}
	for _, other := range products {
		if len(out) >= n {
			break
		}
		if other.ID == p.ID || !other.IsActive() || other.CategorySlug != p.CategorySlug {
			continue
		}
		out = append(out, other)
	}
	return out
}

// Take returns up to n products satisfying keep, in order
func Take(products []*domain.Product, n int, keep func(*domain.Product) bool) []*domain.Product {
	out := []*domain.Product{}
	for _, p := range products {
		if len(out) >= n {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
