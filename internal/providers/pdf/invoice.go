package pdf

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type InvoiceData struct {
	BusinessName string
	CoachName    string
	Reference    string
	Period       string
	IssueDate    string
	Status       string

	ClientCount int64
	PlanName    string
	Amount      string

	UPILink string
	UPIVPA  string
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, data.BusinessName, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+data.Reference, props.Text{Top: 0}),
			text.New("Billing period: "+data.Period, props.Text{Top: 4}),
			text.New("Date of issue: "+data.IssueDate, props.Text{Top: 8}),
			text.New("Status: "+data.Status, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold}),
			text.New(data.CoachName, props.Text{Top: 5}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Active clients", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	desc := "Coaching platform subscription"
	if data.PlanName != "" {
		desc = data.PlanName
	}
	m.AddRow(12,
		text.NewCol(6, desc, props.Text{Size: 9}),
		text.NewCol(3, strconv.FormatInt(data.ClientCount, 10), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(3, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(12,
		col.New(6),
		text.NewCol(3, "Amount due", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, data.Amount, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if data.UPILink != "" {
		m.AddRow(20,
			col.New(12).Add(
				text.New("Pay via UPI to "+data.UPIVPA, props.Text{Size: 9, Style: fontstyle.Bold}),
				text.New(data.UPILink, props.Text{Size: 8, Top: 5}),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
