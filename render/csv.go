/*
csv.go - Tabular exports

PURPOSE:
  Writes projects, certificates and audit entries as CSV for the settings
  export endpoint. Money columns use two fixed decimals; timestamps are UTC
  in "2006-01-02 15:04:05".

COLUMNS:
  projects      ID, Contractor, Contract No, Vote No, Tender Sum, Owner, Created At
  certificates  claim fields, every calculation field, Created At
  audit_logs    User, Action, Model, Object ID, Description, Timestamp
                (an empty actor is written as "System")

SEE ALSO:
  - pdf.go: certificate document
  - api/handlers.go: Export
*/
package render

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/warp/paycert/certificate"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// WriteProjectsCSV writes one row per project.
func WriteProjectsCSV(w io.Writer, projects []certificate.Project) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Contractor", "Contract No", "Vote No", "Tender Sum", "Owner", "Created At"})
	for _, p := range projects {
		_ = cw.Write([]string{
			string(p.ID),
			p.NameOfContractor,
			p.ContractNo,
			p.VoteNo,
			p.TenderSum.StringFixed(2),
			p.Owner,
			formatCSVTime(p.CreatedAt),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteCertificatesCSV writes the stored claim and calculation of each
// record. projects resolves the contractor name; a missing entry leaves the
// column empty.
func WriteCertificatesCSV(w io.Writer, records []certificate.Record, projects map[certificate.ProjectID]certificate.Project) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"ID", "Project", "Currency", "Current Claim", "VAT", "Previous Payment",
		"Value of Work Done (Incl. VAT)", "Total Value of Work Done (Excl. VAT)",
		"Retention", "Total Amount Payable", "Created At",
	})
	for _, r := range records {
		c, calc := r.Certificate, r.Calculation
		_ = cw.Write([]string{
			string(c.ID),
			projects[c.ProjectID].NameOfContractor,
			string(c.Currency),
			c.CurrentClaimExclVAT.StringFixed(2),
			calc.VATValue.StringFixed(2),
			c.PreviousPaymentExclVAT.StringFixed(2),
			calc.ValueOfWorkdoneInclVAT.StringFixed(2),
			calc.TotalValueOfWorkdoneExclVAT.StringFixed(2),
			calc.Retention.StringFixed(2),
			calc.TotalAmountPayable.StringFixed(2),
			formatCSVTime(c.CreatedAt),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteAuditCSV writes audit entries in the order given.
func WriteAuditCSV(w io.Writer, entries []certificate.AuditEntry) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"User", "Action", "Model", "Object ID", "Description", "Timestamp"})
	for _, e := range entries {
		actor := e.Actor
		if actor == "" {
			actor = "System"
		}
		_ = cw.Write([]string{
			actor,
			string(e.Action),
			e.Model,
			e.ObjectID,
			e.Description,
			formatCSVTime(e.Timestamp),
		})
	}
	cw.Flush()
	return cw.Error()
}

func formatCSVTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(csvTimeLayout)
}
