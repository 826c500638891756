package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func cmdPost(app *App) *Command {
	flags := flag.NewFlagSet("post", flag.ContinueOnError)
	message := flags.StringP("message", "m", "", "message text (interactive prompt if omitted)")

	return &Command{
		Flags: flags,
		Usage: "post <oodle> [-m <text>]",
		Short: "Append a new message to an oodle",
		Long: "Append a new message to an oodle, creating the file on first use.\n" +
			"Without -m an interactive prompt collects lines until a lone \".\".",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errOodleRequired
			}

			content := *message
			if content == "" {
				var composeErr error

				content, composeErr = composeMessage(app.In)
				if composeErr != nil {
					return composeErr
				}
			}

			msg, err := app.Store.Create(ctx, args[0], content)
			if err != nil {
				return err
			}

			o.Printf("posted message %d to %s\n", msg.ID, args[0])

			return nil
		},
	}
}
