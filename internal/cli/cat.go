package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func cmdCat(app *App) *Command {
	flags := flag.NewFlagSet("cat", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "cat <oodle>",
		Short: "Print an oodle file as stored on disk",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errOodleRequired
			}

			data, err := app.Store.Raw(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("%s", data)

			return nil
		},
	}
}
