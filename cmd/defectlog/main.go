package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "defectlog",
		Usage: "Capture building inspection defects and export defect logs, statistics and site memos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-prefix",
				Aliases: []string{"p"},
				Usage:   "Environment variable prefix",
				Value:   "DEFECTS",
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			addCommand,
			listCommand,
			getCommand,
			deleteCommand,
			projectsCommand,
			statsCommand,
			exportCommand,
			shareCommand,
			seedCommand,
			idCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
