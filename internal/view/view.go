// Package view renders the cart into HTML. Rendering is a full rebuild
// from the current cart on every request; nothing is patched incrementally.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/currency"
	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

// placeholderImage is shown for items added without a product image.
const placeholderImage = "/static/images/produk/produk1.jpg"

// Flash is a one-shot toast shown on the next rendered page.
type Flash struct {
	Message  string
	Severity string // "success" or "error"
}

// Row is one rendered cart line.
type Row struct {
	Index     int
	Image     string
	Name      string
	UnitPrice string
	Qty       int
	RowTotal  string
}

// CartPage is the full data for the cart page template.
type CartPage struct {
	Empty    bool
	Rows     []Row
	Subtotal string
	Total    string
	Badge    badge.State
	Flash    *Flash
}

// Renderer renders cart pages from embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("view").Funcs(template.FuncMap{
		"formatRp": currency.FormatIDR,
	}).ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// BuildCartPage projects a cart into its page data. The summary is only
// populated for a non-empty cart; the template hides the panel otherwise.
func BuildCartPage(cart *domain.Cart, flash *Flash) CartPage {
	totals := cart.Totals()
	page := CartPage{
		Empty: cart.IsEmpty(),
		Badge: badge.StateFor(totals.Count),
		Flash: flash,
	}
	if page.Empty {
		return page
	}

	page.Rows = make([]Row, len(cart.Items))
	for i, it := range cart.Items {
		img := it.Image
		if img == "" {
			img = placeholderImage
		}
		page.Rows[i] = Row{
			Index:     i,
			Image:     img,
			Name:      it.Name,
			UnitPrice: currency.FormatIDR(it.Price),
			Qty:       it.Qty,
			RowTotal:  currency.FormatIDR(it.RowTotal()),
		}
	}
	page.Subtotal = currency.FormatIDR(totals.Total)
	page.Total = currency.FormatIDR(totals.Total)
	return page
}

// RenderCartPage writes the full cart page for the given cart.
func (r *Renderer) RenderCartPage(w io.Writer, cart *domain.Cart, flash *Flash) error {
	if err := r.tmpl.ExecuteTemplate(w, "cart.gohtml", BuildCartPage(cart, flash)); err != nil {
		return fmt.Errorf("render cart page: %w", err)
	}
	return nil
}
