package bankbook

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// writeStatement renders a PDF statement: the account heading, one line per
// ledger entry in chronological order, and the closing balance.
func writeStatement(w io.Writer, acct *Account) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Account Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("%s #%09d", acct.label(), acct.AcctNum))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, txn := range acct.Transactions() {
		pdf.CellFormat(40, 7, txn.Date.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, "$"+formatAmount(txn.Amount), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, string(txn.Kind), "", 1, "L", false, 0, "")
	}

	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Balance: $%s", formatAmount(acct.Balance())))
	return pdf.Output(w)
}
