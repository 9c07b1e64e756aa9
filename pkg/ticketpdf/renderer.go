package ticketpdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Artifact describes one printable ticket: the display fields shown to the
// holder and the scan payload embedded as a QR code.
type Artifact struct {
	EventName    string
	EventVenue   string
	EventDate    string
	TierName     string
	AttendeeName string
	CredentialID string
	ScanPayload  string
}

// Render produces a single-page A4 PDF with the ticket details and the QR
// code a gate scanner reads.
func Render(a Artifact) ([]byte, error) {
	png, err := qrcode.Encode(a.ScanPayload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr payload: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 12, a.EventName)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	if a.EventVenue != "" {
		pdf.Cell(0, 8, a.EventVenue)
		pdf.Ln(8)
	}
	if a.EventDate != "" {
		pdf.Cell(0, 8, a.EventDate)
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, a.TierName)
	pdf.Ln(10)

	if a.AttendeeName != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "Attendee: "+a.AttendeeName)
		pdf.Ln(8)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("qr-"+a.CredentialID, opts, bytes.NewReader(png))
	pdf.ImageOptions("qr-"+a.CredentialID, 20, 90, 70, 70, false, opts, 0, "")

	pdf.SetY(170)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Ticket ID: "+a.CredentialID)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket pdf: %w", err)
	}

	return buf.Bytes(), nil
}
