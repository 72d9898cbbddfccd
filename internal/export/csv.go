// Package export writes back-office CSV exports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"vitrine/internal/domain"
)

// bom lets spreadsheet software detect UTF-8 (accented French text)
const bom = "\uFEFF"

// Options controls the CSV dialect
type Options struct {
	Comma   rune
	WithBOM bool
}

// DefaultOptions is comma separated with a BOM
var DefaultOptions = Options{Comma: ',', WithBOM: true}

var orderHeader = []string{
	"numero", "date", "statut", "prenom", "nom", "email", "telephone",
	"adresse", "code_postal", "ville", "pays", "articles", "quantite",
	"sous_total", "livraison", "total", "devise", "note_client", "note_interne",
}

var productHeader = []string{
	"id", "titre", "slug", "categorie", "prix", "prix_promo", "devise", "stock",
	"statut", "nouveau", "meilleure_vente", "images", "caracteristiques", "cree_le",
}

func newWriter(w io.Writer, opts Options) (*csv.Writer, error) {
	if opts.WithBOM {
		if _, err := io.WriteString(w, bom); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	return cw, nil
}

// WriteOrdersCSV writes one row per order
func WriteOrdersCSV(w io.Writer, orders []*domain.Order, opts Options) error {
	cw, err := newWriter(w, opts)
	if err != nil {
		return err
	}
	if err := cw.Write(orderHeader); err != nil {
		return fmt.Errorf("failed to write order header: %w", err)
	}

	for _, o := range orders {
		address := o.Customer.AddressLine1
		if o.Customer.AddressLine2 != "" {
			address += "\n" + o.Customer.AddressLine2
		}
		record := []string{
			o.Number,
			o.CreatedAt.UTC().Format(time.RFC3339),
			string(o.Status),
			o.Customer.FirstName,
			o.Customer.LastName,
			o.Customer.Email,
			o.Customer.Phone,
			address,
			o.Customer.PostalCode,
			o.Customer.City,
			o.Customer.Country,
			orderLines(o.Items),
			strconv.Itoa(o.ItemCount()),
			o.Subtotal.StringFixed(2),
			o.ShippingFee.StringFixed(2),
			o.Total.StringFixed(2),
			o.Currency,
			o.CustomerNote,
			o.AdminNote,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.Number, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func orderLines(items []domain.OrderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d x %s", it.Quantity, it.Title)
	}
	return strings.Join(parts, "; ")
}

// WriteProductsCSV writes one row per product
func WriteProductsCSV(w io.Writer, products []*domain.Product, opts Options) error {
	cw, err := newWriter(w, opts)
	if err != nil {
		return err
	}
	if err := cw.Write(productHeader); err != nil {
		return fmt.Errorf("failed to write product header: %w", err)
	}

	for _, p := range products {
		sale := ""
		if p.SalePrice.IsPositive() {
			sale = p.SalePrice.StringFixed(2)
		}
		record := []string{
			p.ID.String(),
			p.Title,
			p.Slug,
			p.CategorySlug,
			p.Price.StringFixed(2),
			sale,
			p.Currency,
			strconv.Itoa(p.Stock),
			string(p.Status),
			strconv.FormatBool(p.IsNew),
			strconv.FormatBool(p.IsBestseller),
			strings.Join(p.Images, " "),
			specs(p.Specs),
			p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write product %s: %w", p.Slug, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// specs renders the spec map as "key: value" lines in key order
func specs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + m[k]
	}
	return strings.Join(lines, "\n")
}

// Filename builds a dated export file name such as commandes-2024-05-01.csv
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, now.Format("2006-01-02"))
}
