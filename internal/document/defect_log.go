package document

import (
	"context"
	"fmt"
	"html/template"

	"defectlog/pkg/types"
)

type DefectLogInput struct {
	Defects []*types.Defect
	// Filter is the filter the defects were selected with; it only labels
	// the report header.
	Filter types.Filter
}

type defectLogView struct {
	Title       string
	Project     string
	FilterLabel string
	Total       int
	Generated   string
	Summary     []summaryRow
	Rows        []defectLogRow
	Legend      string
}

type defectLogRow struct {
	DefectID    string
	ServiceType types.ServiceType
	ServiceName string
	Category    string
	Location    string
	Remarks     string
	Photo       template.URL
	Date        string
	Time        string
}

// DefectLog assembles the defect log report. An empty selection produces a
// report that states no defects were found.
func (a *Assembler) DefectLog(ctx context.Context, input DefectLogInput) (*Document, error) {
	photos, err := a.inlinePhotos(ctx, input.Defects)
	if err != nil {
		return nil, fmt.Errorf("%w: inline photos: %v", types.ErrAssembly, err)
	}

	view := defectLogView{
		Title:       reportTitle,
		Project:     input.Filter.ProjectLabel(),
		FilterLabel: a.serviceTypeLabel(input.Filter),
		Total:       len(input.Defects),
		Generated:   a.generatedAt(),
		Summary:     a.summarize(input.Defects),
		Rows:        make([]defectLogRow, 0, len(input.Defects)),
		Legend:      a.catalog.Legend(),
	}

	for _, d := range input.Defects {
		created := a.localTime(d.CreatedAt)
		view.Rows = append(view.Rows, defectLogRow{
			DefectID:    d.DefectID,
			ServiceType: d.ServiceType,
			ServiceName: a.catalog.Name(d.ServiceType),
			Category:    d.Category,
			Location:    d.Location,
			Remarks:     d.Remarks,
			Photo:       photos[d.PhotoPath],
			Date:        created.Format(dateLayout),
			Time:        created.Format(timeLayout),
		})
	}

	html, err := a.execute("defect_log", view)
	if err != nil {
		return nil, err
	}

	return &Document{
		Kind:  KindDefectLog,
		Scope: input.Filter.ScopeLabel(),
		HTML:  html,
	}, nil
}

func (a *Assembler) serviceTypeLabel(filter types.Filter) string {
	if !filter.HasServiceType() {
		return "All Service Types"
	}
	code, ok := a.catalog.ParseServiceType(filter.ServiceType)
	if !ok {
		return filter.ServiceType
	}
	return fmt.Sprintf("%s - %s", code, a.catalog.Name(code))
}

// summarize counts defects per service type, in catalog order, leaving out
// service types without defects.
func (a *Assembler) summarize(defects []*types.Defect) []summaryRow {
	counts := make(map[types.ServiceType]int)
	for _, d := range defects {
		counts[d.ServiceType]++
	}

	rows := make([]summaryRow, 0, len(counts))
	for _, code := range a.catalog.Codes() {
		if n := counts[code]; n > 0 {
			rows = append(rows, summaryRow{Code: code, Name: a.catalog.Name(code), Count: n})
			delete(counts, code)
		}
	}
	for code, n := range counts {
		rows = append(rows, summaryRow{Code: code, Name: a.catalog.Name(code), Count: n})
	}
	return rows
}
