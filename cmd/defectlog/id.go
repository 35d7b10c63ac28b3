package main

import (
	"fmt"

	"defectlog/internal/ident"
	"defectlog/internal/utils"

	"github.com/urfave/cli/v2"
)

var idCommand = &cli.Command{
	Name:  "id",
	Usage: "Generate identifiers: defect ids (default) or NanoIDs",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.BoolFlag{
			Name:  "nanoid",
			Usage: "Print NanoIDs as used in photo file names",
		},
		&cli.BoolFlag{
			Name:  "next-memo",
			Usage: "Show the memo number the next site memo will get without consuming it",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Bool("next-memo") {
			app, err := setup(c, setupOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			next, err := app.memos.Peek(c.Context)
			if err != nil {
				return err
			}
			fmt.Println(next)
			return nil
		}

		gen := ident.NewGenerator()
		for range c.Int("count") {
			if c.Bool("nanoid") {
				fmt.Println(utils.NanoID())
				continue
			}
			fmt.Println(gen.DefectID())
		}
		return nil
	},
}
