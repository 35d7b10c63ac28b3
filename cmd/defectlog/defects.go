package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"defectlog/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var filterFlags = []cli.Flag{
	&cli.StringFlag{Name: "project", Usage: "Project title, or All", Value: types.AllFilter},
	&cli.StringFlag{Name: "service-type", Aliases: []string{"t"}, Usage: "Service type code, or All", Value: types.AllFilter},
	&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Free text search over location, defect id, category and remarks"},
}

func filterFromFlags(c *cli.Context) types.Filter {
	return types.Filter{
		Project:     c.String("project"),
		ServiceType: c.String("service-type"),
		Search:      c.String("search"),
	}
}

var addCommand = &cli.Command{
	Name:  "add",
	Usage: "Capture a defect with a photo from disk",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "project", Usage: "Project title", Required: true},
		&cli.StringFlag{Name: "service-type", Aliases: []string{"t"}, Usage: "PD, FS, MVAC, EL or Bonding", Required: true},
		&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Defect category from the service type's list", Required: true},
		&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Usage: "Where the defect was found", Required: true},
		&cli.StringFlag{Name: "remarks", Aliases: []string{"r"}, Usage: "Free text, at most 500 characters"},
		&cli.PathFlag{Name: "photo", Usage: "Path to the defect photo", Required: true},
	},
	Action: func(c *cli.Context) error {
		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		defect, err := app.capture.Capture(c.Context, types.NewDefect{
			ProjectTitle: c.String("project"),
			ServiceType:  types.ServiceType(c.String("service-type")),
			Category:     c.String("category"),
			Location:     c.String("location"),
			Remarks:      c.String("remarks"),
			PhotoPath:    c.Path("photo"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Defect %s saved (id %d)\n", defect.DefectID, defect.ID)
		return nil
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List defects, most recent first",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
	}, filterFlags...),
	Action: func(c *cli.Context) error {
		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		defects := app.query.Filtered(c.Context, filterFromFlags(c))
		if c.Bool("json") {
			return printJSON(os.Stdout, defects)
		}

		return printDefectTable(os.Stdout, defects)
	},
}

func printDefectTable(w io.Writer, defects []*types.Defect) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEFECT ID\tPROJECT\tTYPE\tCATEGORY\tLOCATION\tCREATED")
	for _, d := range defects {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.DefectID, d.ProjectTitle, d.ServiceType, d.Category, d.Location, d.CreatedAt.Time.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d defect(s)\n", len(defects))
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "Show one defect",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "Pretty print the full record"},
	},
	Action: func(c *cli.Context) error {
		id, err := idArg(c)
		if err != nil {
			return err
		}

		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		defect, err := app.defects.DefectByID(c.Context, id)
		if err != nil {
			return err
		}

		if c.Bool("debug") {
			pp.Println(defect)
			return nil
		}

		return printJSON(os.Stdout, defect)
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "Delete one defect",
	ArgsUsage: "<id>",
	Action: func(c *cli.Context) error {
		id, err := idArg(c)
		if err != nil {
			return err
		}

		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.defects.DeleteDefect(c.Context, id); err != nil {
			return err
		}

		fmt.Printf("Defect %d deleted\n", id)
		return nil
	},
}

func idArg(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one defect id")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid defect id %q", c.Args().First())
	}
	return id, nil
}

var projectsCommand = &cli.Command{
	Name:  "projects",
	Usage: "List project titles that have defects",
	Action: func(c *cli.Context) error {
		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		current, err := app.prefs.CurrentProject(c.Context)
		if err != nil {
			app.logger.WithError(err).Warn("failed to read current project")
		}

		for _, p := range app.query.Projects(c.Context) {
			marker := " "
			if p == current {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p)
		}
		return nil
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "Show defect counts per service type and category",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "project", Usage: "Project title, or All", Value: types.AllFilter},
		&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
	},
	Action: func(c *cli.Context) error {
		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		statistics := app.stats.ForProject(c.Context, c.String("project"))
		if c.Bool("json") {
			return printJSON(os.Stdout, statistics)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t\t%d\n", statistics.Project, statistics.GrandTotal())
		for _, code := range statistics.RankedServiceTypes() {
			fmt.Fprintf(tw, "%s\t\t%d\n", app.catalog.Name(code), statistics.Total(code))
			for _, cc := range statistics.Ranked(code) {
				fmt.Fprintf(tw, "\t%s\t%d\n", cc.Category, cc.Count)
			}
		}
		return tw.Flush()
	},
}
