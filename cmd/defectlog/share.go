package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var shareCommand = &cli.Command{
	Name:      "share",
	Usage:     "Upload a generated document and print a link to it",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("expected exactly one file")
		}

		app, err := setup(c, setupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		link, err := app.sharer.Share(c.Context, c.Args().First())
		if err != nil {
			return err
		}

		fmt.Println(link)
		return nil
	},
}
