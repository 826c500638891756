package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

func cmdEdit(app *App) *Command {
	flags := flag.NewFlagSet("edit", flag.ContinueOnError)
	message := flags.StringP("message", "m", "", "replacement text (interactive prompt if omitted)")

	return &Command{
		Flags: flags,
		Usage: "edit <oodle> <id> [-m <text>]",
		Short: "Rewrite a message's content in place",
		Long: "Rewrite one message's content. The message keeps its id, creation\n" +
			"time, and position in the file; only content and modified change.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			name, id, err := oodleAndID(args)
			if err != nil {
				return err
			}

			content := *message
			if content == "" {
				var composeErr error

				content, composeErr = composeMessage(app.In)
				if composeErr != nil {
					return composeErr
				}
			}

			msg, err := app.Store.Update(ctx, name, id, content)
			if err != nil {
				return err
			}

			o.Printf("edited message %d in %s\n", msg.ID, name)

			return nil
		},
	}
}
