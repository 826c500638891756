package cli

import (
	"context"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"
)

func cmdShow(app *App) *Command {
	flags := flag.NewFlagSet("show", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "show <oodle> <id>",
		Short: "Print one message",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			name, id, err := oodleAndID(args)
			if err != nil {
				return err
			}

			msg, err := app.Store.Get(ctx, name, id)
			if err != nil {
				return err
			}

			o.Printf("id: %d\n", msg.ID)
			o.Printf("created: %s\n", msg.Created.Format(time.RFC3339))
			o.Printf("modified: %s\n", msg.Modified.Format(time.RFC3339))
			o.Println()
			o.Println(msg.Content)

			return nil
		},
	}
}

// oodleAndID parses the common "<oodle> <id>" argument pair.
func oodleAndID(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, errOodleRequired
	}

	id, convErr := strconv.Atoi(args[1])
	if convErr != nil || id < 1 {
		return "", 0, errMessageIDInvalid
	}

	return args[0], id, nil
}
