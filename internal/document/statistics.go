package document

import (
	"context"
	"strconv"

	"defectlog/pkg/types"
)

type StatisticsInput struct {
	Statistics *types.Statistics
}

type statisticsView struct {
	Title     string
	Project   string
	Generated string
	Total     int
	Summary   []summaryRow
	Sections  []statisticsSection
}

type statisticsSection struct {
	Code       types.ServiceType
	Name       string
	Total      int
	Categories []statisticsCategory
}

type statisticsCategory struct {
	Name    string
	Count   int
	Percent string
}

// Statistics assembles the statistics report: the grand total, a summary of
// service types ranked by defect count, and one block per service type with
// its categories ranked by count.
func (a *Assembler) Statistics(_ context.Context, input StatisticsInput) (*Document, error) {
	s := input.Statistics
	if s == nil {
		s = types.NewStatistics(types.Filter{}.ProjectLabel())
	}

	project := s.Project
	if project == "" {
		project = types.Filter{}.ProjectLabel()
	}

	view := statisticsView{
		Title:     reportTitle,
		Project:   project,
		Generated: a.generatedAt(),
		Total:     s.GrandTotal(),
	}

	for _, code := range s.RankedServiceTypes() {
		total := s.Total(code)
		name := a.catalog.Name(code)

		view.Summary = append(view.Summary, summaryRow{Code: code, Name: name, Count: total})

		section := statisticsSection{Code: code, Name: name, Total: total}
		for _, c := range s.Ranked(code) {
			section.Categories = append(section.Categories, statisticsCategory{
				Name:    c.Category,
				Count:   c.Count,
				Percent: percent(c.Count, total),
			})
		}
		view.Sections = append(view.Sections, section)
	}

	html, err := a.execute("statistics", view)
	if err != nil {
		return nil, err
	}

	return &Document{
		Kind:  KindStatistics,
		Scope: project,
		HTML:  html,
	}, nil
}

// percent formats part/whole with one decimal, e.g. "66.7".
func percent(part, whole int) string {
	if whole == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(part)/float64(whole)*100, 'f', 1, 64)
}
