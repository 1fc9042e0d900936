package product

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
)

// ParseSortKey falls back to SortNewest for anything it does not recognise.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortPriceAsc, SortPriceDesc:
		return k
	default:
		return SortNewest
	}
}

// Filter is the typed form of the catalog query parameters.
// Zero values mean "no constraint" for every dimension.
type Filter struct {
	Search   string
	Category string
	Colors   []string
	Sizes    []int
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Featured bool
	Sort     SortKey
	Limit    int
}

// ParseFilter builds a Filter from request query parameters. Values that do not parse
// are dropped rather than reported.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Colors:   splitList(q["colors"]),
		Sort:     ParseSortKey(q.Get("sort")),
		InStock:  parseFlag(q.Get("inStock")),
		Featured: parseFlag(q.Get("featured")),
	}

	for _, raw := range splitList(q["sizes"]) {
		// Sizes are stored as int4, so anything outside int32 is unparseable.
		size, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || size <= 0 {
			continue
		}
		f.Sizes = append(f.Sizes, int(size))
	}

	f.MinPrice = parsePrice(q.Get("minPrice"))
	f.MaxPrice = parsePrice(q.Get("maxPrice"))

	if limit, err := strconv.Atoi(strings.TrimSpace(q.Get("limit"))); err == nil && limit > 0 {
		f.Limit = limit
	}

	return f
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseFlag(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

func parsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// Match reports whether p satisfies every dimension of the filter.
func (f Filter) Match(p Product) bool {
	if f.Search != "" && !matchesSearch(p, f.Search) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if len(f.Colors) > 0 && !intersects(p.Colors, f.Colors) {
		return false
	}
	if len(f.Sizes) > 0 && !intersects(p.Sizes, f.Sizes) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	if f.Featured && !p.Featured {
		return false
	}
	return true
}

func matchesSearch(p Product, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.ToLower(tag) == needle {
			return true
		}
	}
	return false
}

func intersects[T comparable](have, want []T) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Apply filters, sorts and limits products in memory. The input slice is not modified.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return f.less(out[i], out[j])
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (f Filter) less(a, b Product) bool {
	switch f.Sort {
	case SortPriceAsc:
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
	case SortPriceDesc:
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c > 0
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID.String() < b.ID.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQL renders the filter as a WHERE/ORDER BY/LIMIT tail for a query over the products
// table. Placeholders are numbered from argOffset+1.
func (f Filter) SQL(argOffset int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", argOffset+len(args))
	}

	if f.Search != "" {
		pattern := next("%" + likeEscaper.Replace(f.Search) + "%")
		tag := next(strings.ToLower(f.Search))
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE %[1]s ESCAPE '\' OR description ILIKE %[1]s ESCAPE '\' OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE lower(t) = %[2]s))`,
			pattern, tag))
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("lower(category) = lower(%s)", next(f.Category)))
	}
	if len(f.Colors) > 0 {
		conds = append(conds, fmt.Sprintf("colors && %s::text[]", next(f.Colors)))
	}
	if len(f.Sizes) > 0 {
		conds = append(conds, fmt.Sprintf("sizes && %s::int[]", next(sizesArg(f.Sizes))))
	}
	if f.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("price >= %s", next(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("price <= %s", next(*f.MaxPrice)))
	}
	if f.InStock {
		conds = append(conds, "stock > 0")
	}
	if f.Featured {
		conds = append(conds, "featured = true")
	}

	var sb strings.Builder
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	switch f.Sort {
	case SortPriceAsc:
		sb.WriteString(" ORDER BY price ASC, id ASC")
	case SortPriceDesc:
		sb.WriteString(" ORDER BY price DESC, id ASC")
	default:
		sb.WriteString(" ORDER BY created_at DESC, id ASC")
	}

	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + next(f.Limit))
	}

	return sb.String(), args
}
