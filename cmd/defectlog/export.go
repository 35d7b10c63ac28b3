package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"defectlog/internal/document"
	"defectlog/internal/stats"
	"defectlog/pkg/types"

	"github.com/urfave/cli/v2"
)

var idsFlag = &cli.StringFlag{
	Name:  "ids",
	Usage: "Comma separated defect ids; overrides the filter",
}

var shareFlag = &cli.BoolFlag{
	Name:  "share",
	Usage: "Hand the written file to the configured sharer",
}

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "Write defect log, statistics or site memo documents",
	Subcommands: []*cli.Command{
		{
			Name:   "log",
			Usage:  "Defect log PDF",
			Flags:  append([]cli.Flag{idsFlag, shareFlag}, filterFlags...),
			Action: exportDefectLog,
		},
		{
			Name:   "stats",
			Usage:  "Statistics PDF",
			Flags:  append([]cli.Flag{idsFlag, shareFlag}, filterFlags...),
			Action: exportStatistics,
		},
		{
			Name:  "memo",
			Usage: "Site memo PDF; consumes the next memo number",
			Flags: append([]cli.Flag{
				idsFlag,
				shareFlag,
				&cli.BoolFlag{Name: "photos", Usage: "Embed the defect photos"},
			}, filterFlags...),
			Action: exportSiteMemo,
		},
		{
			Name:  "xlsx",
			Usage: "Defect log workbook",
			Flags: append([]cli.Flag{
				&cli.PathFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file; defaults to the documents directory"},
			}, filterFlags...),
			Action: exportWorkbook,
		},
	},
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid defect id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (app *components) selectDefects(c *cli.Context) ([]*types.Defect, error) {
	if raw := c.String("ids"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return nil, err
		}
		return app.query.Selection(c.Context, ids), nil
	}
	return app.query.Filtered(c.Context, filterFromFlags(c)), nil
}

func (app *components) writeDocument(c *cli.Context, doc *document.Document) error {
	result, err := app.exporter.Export(c.Context, doc)
	if err != nil {
		return err
	}

	if result.ImagesStripped {
		fmt.Println("Photos could not be rendered and were left out")
	}
	if result.MemoNumber != "" {
		fmt.Printf("Memo number %s\n", result.MemoNumber)
	}
	fmt.Println(result.Path)

	if c.Bool("share") {
		link, err := app.sharer.Share(c.Context, result.Path)
		if err != nil {
			return err
		}
		fmt.Println(link)
	}
	return nil
}

func exportDefectLog(c *cli.Context) error {
	app, err := setup(c, setupOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	defects, err := app.selectDefects(c)
	if err != nil {
		return err
	}

	doc, err := app.assembler.DefectLog(c.Context, document.DefectLogInput{
		Defects: defects,
		Filter:  filterFromFlags(c),
	})
	if err != nil {
		return err
	}

	return app.writeDocument(c, doc)
}

func exportStatistics(c *cli.Context) error {
	app, err := setup(c, setupOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	f := filterFromFlags(c)
	counts := app.stats.ForProject(c.Context, f.Project)
	if c.String("ids") != "" || f.HasServiceType() || strings.TrimSpace(f.Search) != "" {
		defects, err := app.selectDefects(c)
		if err != nil {
			return err
		}
		counts = stats.FromDefects(f.ProjectLabel(), defects)
	}

	doc, err := app.assembler.Statistics(c.Context, document.StatisticsInput{
		Statistics: counts,
	})
	if err != nil {
		return err
	}

	return app.writeDocument(c, doc)
}

func exportSiteMemo(c *cli.Context) error {
	app, err := setup(c, setupOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	defects, err := app.selectDefects(c)
	if err != nil {
		return err
	}

	doc, err := app.assembler.SiteMemo(c.Context, document.SiteMemoInput{
		Defects:       defects,
		Project:       c.String("project"),
		IncludePhotos: c.Bool("photos"),
	})
	if err != nil {
		return err
	}

	return app.writeDocument(c, doc)
}

func exportWorkbook(c *cli.Context) error {
	app, err := setup(c, setupOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	filter := filterFromFlags(c)
	data, err := document.WriteDefectLogWorkbook(app.catalog, app.query.Filtered(c.Context, filter))
	if err != nil {
		return err
	}

	out := c.Path("out")
	if out == "" {
		if err := os.MkdirAll(app.exporter.Dir(), 0o755); err != nil {
			return fmt.Errorf("failed to create documents directory: %w", err)
		}
		out = filepath.Join(app.exporter.Dir(), document.WorkbookFileName(filter.ScopeLabel(), time.Now()))
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	fmt.Println(out)
	return nil
}
