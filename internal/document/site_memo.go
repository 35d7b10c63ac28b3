package document

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"os"
	"regexp"
	"slices"
	"strings"

	"defectlog/pkg/types"
)

const (
	deadlineDays  = 14
	multipleTrade = "Multiple Trades"
	markerText    = "[Defects Photo insert here]"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*[A-Za-z][A-Za-z0-9_]*\s*\}\}`)
	markupRe      = regexp.MustCompile(`<[A-Za-z][^>]*>`)
	tbodyRe       = regexp.MustCompile(`(?is)<tbody[^>]*>.*?</tbody>`)
	tableOpenRe   = regexp.MustCompile(`(?i)<table\b`)
	tableCloseRe  = regexp.MustCompile(`(?i)</table\s*>`)
	rowOpenRe     = regexp.MustCompile(`(?i)<tr\b`)
	markerRe      = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(markerText))

	memoNumberTokenRe = regexp.MustCompile(`(?i)\[accumulate number extraction number\]`)
	dateTokenRe       = regexp.MustCompile(`(?i)\[Date of extract defects from defects log\]`)
	deadlineTokenRe   = regexp.MustCompile(`(?i)\[[^\[\]]*?(?:Date of extract defects from defects log|insert date)[^\[\]]*?\+\s*14 calendar days[^\[\]]*?\]`)
	tradeTokenRe      = regexp.MustCompile(`(?i)\[Insert Trade\]`)
	categoryTokenRe   = regexp.MustCompile(`(?i)\[Insert Defects Category\]`)
	locationTokenRe   = regexp.MustCompile(`(?i)\[Insert Location\]`)

	legacyTokens = []*regexp.Regexp{
		memoNumberTokenRe,
		dateTokenRe,
		deadlineTokenRe,
		tradeTokenRe,
		categoryTokenRe,
		locationTokenRe,
		markerRe,
	}
)

type SiteMemoInput struct {
	Defects []*types.Defect
	// Project is the project filter in effect. When it is the "All"
	// wildcard the memo is addressed for the first defect's project.
	Project       string
	IncludePhotos bool
}

type siteMemoView struct {
	Project       string
	MemoNumber    string
	Date          string
	Deadline      string
	Subject       string
	IncludePhotos bool
	Rows          []siteMemoRow
}

type siteMemoRow struct {
	Trade    types.ServiceType
	Category string
	Location string
	Remarks  string
	Photo    template.URL
}

// SiteMemo assembles a site memo requesting rectification of the given
// defects. It consumes a memo number only once the input is accepted.
func (a *Assembler) SiteMemo(ctx context.Context, input SiteMemoInput) (*Document, error) {
	if len(input.Defects) == 0 {
		return nil, types.NewValidationError("defects", "select at least one defect for the site memo")
	}

	external, useExternal := a.externalMemoTemplate()

	var photos map[string]template.URL
	if input.IncludePhotos {
		var err error
		photos, err = a.inlinePhotos(ctx, input.Defects)
		if err != nil {
			return nil, fmt.Errorf("%w: inline photos: %v", types.ErrAssembly, err)
		}
	}

	memoNumber, err := a.memos.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: issue memo number: %v", types.ErrAssembly, err)
	}

	today := a.now().In(a.loc)
	view := siteMemoView{
		Project:       memoProject(input),
		MemoNumber:    memoNumber,
		Date:          today.Format(dateLayout),
		Deadline:      today.AddDate(0, 0, deadlineDays).Format(dateLayout),
		Subject:       fmt.Sprintf("Request %s defects rectification", tradeText(input.Defects)),
		IncludePhotos: input.IncludePhotos,
		Rows:          make([]siteMemoRow, 0, len(input.Defects)),
	}
	for _, d := range input.Defects {
		view.Rows = append(view.Rows, siteMemoRow{
			Trade:    d.ServiceType,
			Category: d.Category,
			Location: d.Location,
			Remarks:  d.Remarks,
			Photo:    photos[d.PhotoPath],
		})
	}

	var out string
	if useExternal {
		out, err = a.fillMemoTemplate(external, view, input.Defects)
	} else {
		out, err = a.execute("site_memo", view)
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Kind:        KindSiteMemo,
		Scope:       memoNumber,
		HTML:        out,
		MemoNumber:  memoNumber,
		Attachments: photoPaths(input.Defects),
	}, nil
}

func memoProject(input SiteMemoInput) string {
	if !types.Unconstrained(input.Project) {
		return strings.TrimSpace(input.Project)
	}
	if p := input.Defects[0].ProjectTitle; p != "" {
		return p
	}
	return "N/A"
}

// tradeText is the single service type shared by every defect, or
// "Multiple Trades".
func tradeText(defects []*types.Defect) string {
	trade := defects[0].ServiceType
	for _, d := range defects[1:] {
		if d.ServiceType != trade {
			return multipleTrade
		}
	}
	return string(trade)
}

func photoPaths(defects []*types.Defect) []string {
	out := make([]string, 0, len(defects))
	for _, d := range defects {
		if d.PhotoPath != "" && !slices.Contains(out, d.PhotoPath) {
			out = append(out, d.PhotoPath)
		}
	}
	return out
}

// externalMemoTemplate loads the configured memo template. It is only used
// when it can be read and looks like a real HTML document.
func (a *Assembler) externalMemoTemplate() (string, bool) {
	if a.memoTemplatePath == "" {
		return "", false
	}

	data, err := os.ReadFile(a.memoTemplatePath)
	if err != nil {
		a.logger.WithError(err).WithField("path", a.memoTemplatePath).Warn("failed to read site memo template, using the built-in layout")
		return "", false
	}

	content := string(data)
	if !usableTemplate(content) {
		a.logger.WithField("path", a.memoTemplatePath).Warn("site memo template is empty or not HTML, using the built-in layout")
		return "", false
	}

	return content, true
}

func usableTemplate(content string) bool {
	trimmed := strings.TrimSpace(content)
	return len(trimmed) > 100 && markupRe.MatchString(trimmed)
}

// fillMemoTemplate substitutes every placeholder of an external template and
// fills its marker table with one row per defect. Placeholders left over
// afterwards break the template contract.
func (a *Assembler) fillMemoTemplate(content string, view siteMemoView, defects []*types.Defect) (string, error) {
	esc := html.EscapeString

	replacer := strings.NewReplacer(
		"{{PROJECT_TITLE}}", esc(view.Project),
		"{{MEMO_NUMBER}}", esc(view.MemoNumber),
		"{{DATE}}", esc(view.Date),
		"{{DEADLINE}}", esc(view.Deadline),
		"{{SUBJECT}}", esc(view.Subject),
	)
	content = replacer.Replace(content)

	content = memoNumberTokenRe.ReplaceAllLiteralString(content, esc(view.MemoNumber))
	content = deadlineTokenRe.ReplaceAllLiteralString(content, esc(view.Deadline))
	content = dateTokenRe.ReplaceAllLiteralString(content, esc(view.Date))

	rows, err := a.execute("site_memo_rows", view)
	if err != nil {
		return "", err
	}
	content, err = fillMarkerTable(content, rows)
	if err != nil {
		return "", err
	}

	content = tradeTokenRe.ReplaceAllLiteralString(content, esc(tradeText(defects)))
	content = categoryTokenRe.ReplaceAllLiteralString(content, esc(strings.Join(uniqueCategories(defects), ", ")))
	content = locationTokenRe.ReplaceAllLiteralString(content, esc(strings.Join(locations(defects), ", ")))

	if err := checkTemplateContract(content); err != nil {
		return "", err
	}

	return content, nil
}

// fillMarkerTable puts rows into the table holding the photo marker. A
// tbody is replaced whole. Without one, the row holding the marker and every
// row after it are replaced, so header rows above the marker survive.
// Templates without a marker are left untouched.
func fillMarkerTable(content, rows string) (string, error) {
	loc := markerRe.FindStringIndex(content)
	if loc == nil {
		return content, nil
	}
	marker := loc[0]

	opens := tableOpenRe.FindAllStringIndex(content[:marker], -1)
	closeLoc := tableCloseRe.FindStringIndex(content[marker:])
	if len(opens) == 0 || closeLoc == nil {
		return "", fmt.Errorf("%w: %s is not inside a table", types.ErrTemplateContract, markerText)
	}

	start := opens[len(opens)-1][0]
	closeStart := marker + closeLoc[0]
	end := marker + closeLoc[1]

	if body := tbodyRe.FindStringIndex(content[start:end]); body != nil {
		return content[:start+body[0]] + "<tbody>" + rows + "</tbody>" + content[start+body[1]:], nil
	}

	rowOpens := rowOpenRe.FindAllStringIndex(content[start:marker], -1)
	if len(rowOpens) == 0 {
		return "", fmt.Errorf("%w: %s is not inside a table row", types.ErrTemplateContract, markerText)
	}
	rowStart := start + rowOpens[len(rowOpens)-1][0]

	return content[:rowStart] + rows + content[closeStart:], nil
}

func checkTemplateContract(content string) error {
	leftover := placeholderRe.FindAllString(content, -1)
	for _, re := range legacyTokens {
		leftover = append(leftover, re.FindAllString(content, -1)...)
	}
	if len(leftover) == 0 {
		return nil
	}

	slices.Sort(leftover)
	return fmt.Errorf("%w: %s", types.ErrTemplateContract, strings.Join(slices.Compact(leftover), ", "))
}

func uniqueCategories(defects []*types.Defect) []string {
	out := make([]string, 0, len(defects))
	for _, d := range defects {
		if d.Category != "" && !slices.Contains(out, d.Category) {
			out = append(out, d.Category)
		}
	}
	return out
}

func locations(defects []*types.Defect) []string {
	out := make([]string, 0, len(defects))
	for _, d := range defects {
		if d.Location != "" {
			out = append(out, d.Location)
		}
	}
	return out
}
