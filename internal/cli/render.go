package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/storage/journal"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	subtle    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
)

// printer renders results; styles degrade to plain text when w is not a terminal.
type printer struct {
	w     io.Writer
	label lipgloss.Style
	good  lipgloss.Style
	muted lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		label: r.NewStyle().Foreground(highlight).Bold(true),
		good:  r.NewStyle().Foreground(special).Bold(true),
		muted: r.NewStyle().Foreground(subtle),
	}
}

func (p *printer) field(label string, value any) {
	fmt.Fprintf(p.w, "%s %v\n", p.label.Render(label+":"), value)
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) done() {
	fmt.Fprintln(p.w, p.good.Render("Done"))
}

func (p *printer) ledger(s domain.LedgerState, valuation string) {
	p.field("State", s.Phase)
	if valuation != "" {
		p.field("Left ETH", fmt.Sprintf("%s %s", s.LeftEth.Format(), p.muted.Render("(~"+valuation+")")))
	} else {
		p.field("Left ETH", s.LeftEth.Format())
	}
	p.field("Left SCM", s.LeftScm.Format())
	p.field("ICO", s.ICO.Hex())
	p.field("SCM", s.SCM.Hex())
	p.field("WETH", s.WETH.Hex())
	p.field("Block", s.Height)

	if s.HasSchedule() {
		p.field("Close time", localTime(s.CloseTime))
		p.field("Finish time", localTime(s.FinishTime))
	}
}

func (p *printer) report(r domain.WorkflowReport) {
	for _, step := range r.Steps {
		marker := p.good.Render("✓")
		if step.Status == domain.StepSkipped {
			marker = p.muted.Render("-")
		}
		fmt.Fprintf(p.w, "%s %s\n", marker, step)
	}

	if r.Receipt != nil {
		p.field("Funded", r.Receipt.Funded.Format())
		p.field("Tokens", r.Receipt.Tokens.Format())
		p.field("Block", r.Receipt.Block)
	}
	for _, b := range r.Balances {
		p.field(b.Label, b.Amount.Format())
	}
}

func (p *printer) records(records []journal.Record) {
	if len(records) == 0 {
		p.line(p.muted.Render("journal is empty"))
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		e := rec.Entry
		rows = append(rows, []string{
			fmt.Sprint(rec.Index),
			e.Time.Local().Format(timeLayout),
			shortID(e.RunID),
			e.Workflow,
			e.Step,
			string(e.Status),
			shortHash(e.TxHash),
			e.Detail,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.muted).
		Headers("#", "TIME", "RUN", "WORKFLOW", "STEP", "STATUS", "TX", "DETAIL").
		Rows(rows...)

	p.line(t.Render())
}

func localTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortHash(h string) string {
	if h == "" || h == (common.Hash{}).Hex() {
		return ""
	}
	if len(h) > 12 {
		return h[:8] + "…" + h[len(h)-4:]
	}
	return h
}
