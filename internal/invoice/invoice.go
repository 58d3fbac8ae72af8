// Package invoice renders a single-page repair invoice for a job.
package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// ClosingLine is printed at the bottom of every invoice.
const ClosingLine = "Thank you for your business!"

// Title is the document heading.
const Title = "Repair Invoice"

// Shop identifies the business printed in the header.
type Shop struct {
	Name    string
	Phone   string
	Address string
}

// Layout is the fixed content of one invoice, in print order.
type Layout struct {
	Title        string
	Shop         Shop
	InvoiceNo    string
	IssuedAt     time.Time
	CustomerName string
	Phone        string
	Device       string
	Problem      string
	Status       string
	Closing      string
}

// Renderer turns a Layout into document bytes.
type Renderer interface {
	Render(l Layout) ([]byte, error)
}

// Printer hands a finished document to the platform print service.
type Printer interface {
	Print(ctx context.Context, name string, document []byte) error
}

// Generator builds invoices for repair jobs.
type Generator struct {
	renderer Renderer
	shop     Shop
	now      func() time.Time
}

// NewGenerator creates a Generator. A nil renderer selects the PDF renderer.
func NewGenerator(shop Shop, renderer Renderer) *Generator {
	if renderer == nil {
		renderer = NewPDFRenderer()
	}
	return &Generator{renderer: renderer, shop: shop, now: time.Now}
}

// Layout builds the invoice content for job.
func (g *Generator) Layout(job *models.RepairJob) Layout {
	device := job.Model
	if imei := strings.TrimSpace(job.IMEI); imei != "" {
		device = fmt.Sprintf("%s (IMEI %s)", job.Model, imei)
	}
	return Layout{
		Title:        Title,
		Shop:         g.shop,
		InvoiceNo:    FileName(job),
		IssuedAt:     g.now(),
		CustomerName: job.CustomerName,
		Phone:        job.Phone,
		Device:       device,
		Problem:      job.Problem,
		Status:       string(job.Status),
		Closing:      ClosingLine,
	}
}

// Render returns the invoice document for job.
func (g *Generator) Render(job *models.RepairJob) ([]byte, error) {
	if job == nil {
		return nil, errors.New(errors.ErrValidation, "repair job is required")
	}
	doc, err := g.renderer.Render(g.Layout(job))
	if err != nil {
		return nil, errors.Wrap(errors.ErrRender, "failed to render invoice", err)
	}
	return doc, nil
}

// FileName returns the document name used when printing or sharing job's invoice.
func FileName(job *models.RepairJob) string {
	return fmt.Sprintf("invoice-%06d", job.ID)
}
