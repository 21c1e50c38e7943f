package certificates

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"greenledger/restoration-portal/portal-backend/internal/projects"
)

// ErrNotMinted is returned when a certificate is requested for a project
// whose mint has not completed.
var ErrNotMinted = errors.New("project has no completed mint")

// Options configures certificate rendering
type Options struct {
	Title      string
	Issuer     string
	FontFamily string
	DateFormat string
}

// DefaultOptions returns default certificate options
func DefaultOptions() Options {
	return Options{
		Title:      "Carbon Credit Issuance Certificate",
		Issuer:     "GreenLedger Restoration Portal",
		FontFamily: "Arial",
		DateFormat: "2006-01-02",
	}
}

// Generator renders issuance certificates for minted projects
type Generator struct {
	options Options
}

// NewGenerator creates a certificate generator
func NewGenerator(options Options) *Generator {
	if options.Title == "" {
		options = DefaultOptions()
	}
	return &Generator{options: options}
}

// Generate renders the certificate PDF for a minted project. The project must
// carry the on-ledger mint record.
func (g *Generator) Generate(project *projects.Project) ([]byte, error) {
	if project == nil || !project.IsImmutable || project.CreditsIssued == nil || project.MintAddress == nil {
		return nil, ErrNotMinted
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont(g.options.FontFamily, "B", 22)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 14, g.options.Title, "", 1, "C", false, 0, "")

	pdf.SetFont(g.options.FontFamily, "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, g.options.Issuer, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetDrawColor(68, 114, 196)
	pdf.SetLineWidth(0.6)
	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	pdf.Line(left, pdf.GetY(), pageWidth-right, pdf.GetY())
	pdf.Ln(10)

	pdf.SetFont(g.options.FontFamily, "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 7, fmt.Sprintf(
		"This certifies that the restoration project %q has been issued %d verified carbon credits, "+
			"each representing one tonne of CO2 equivalent sequestered.",
		project.Name, *project.CreditsIssued), "", "L", false)
	pdf.Ln(8)

	g.addField(pdf, "Project ID", project.ID.String())
	g.addField(pdf, "Area", fmt.Sprintf("%.2f hectares", project.AreaHectares))
	g.addField(pdf, "Credits Issued", fmt.Sprintf("%d", *project.CreditsIssued))
	g.addField(pdf, "Recipient Wallet", project.WalletAddress)
	g.addField(pdf, "Token Mint Address", *project.MintAddress)
	if project.MintedAt != nil {
		g.addField(pdf, "Minted On", project.MintedAt.Format(g.options.DateFormat))
	}

	pdf.Ln(12)
	pdf.SetFont(g.options.FontFamily, "", 9)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().UTC().Format(g.options.DateFormat)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) addField(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont(g.options.FontFamily, "B", 11)
	pdf.CellFormat(55, 7, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.options.FontFamily, "", 11)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}
