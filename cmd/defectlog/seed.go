package main

import (
	"fmt"

	"defectlog/internal/seed"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Fill the store with sample defects",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "project",
			Usage: "Project title to spread samples over; repeatable",
			Value: cli.NewStringSlice("Sample Tower A", "Sample Tower B"),
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of sample defects",
			Value:   20,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Remove previously seeded defects first",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "Random seed for reproducible samples",
		},
	},
	Action: func(c *cli.Context) error {
		app, err := setup(c, setupOptions{})
		if err != nil {
			return fmt.Errorf("failed to set up: %w", err)
		}
		defer app.Close()

		app.logger.Info("Seeding sample defects...")

		created, err := seed.SeedSampleDefects(c.Context, app.logger, app.catalog, app.capture, app.defects, seed.Options{
			Projects: c.StringSlice("project"),
			Count:    c.Int("count"),
			Reset:    c.Bool("reset"),
			Seed:     c.Uint64("seed"),
		})
		if err != nil {
			return fmt.Errorf("failed to seed defects: %w", err)
		}

		fmt.Printf("Sample defects seeded: %d created\n", len(created))
		return nil
	},
}
