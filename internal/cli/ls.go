package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"
)

func cmdLs(app *App) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "ls",
		Short: "List oodles in the data directory",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			infos, err := app.Store.List(ctx)
			if err != nil {
				return err
			}

			if len(infos) == 0 {
				o.Println("no oodles in", app.Config.DataDirAbs)

				return nil
			}

			for _, info := range infos {
				if info.Err != nil {
					o.Warn("%s: %v", info.Name, info.Err)

					continue
				}

				o.Printf("%-30s %4d messages  %s\n",
					info.Name, info.Messages, info.Modified.Format(time.RFC3339))
			}

			return nil
		},
	}
}
