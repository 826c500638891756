// Package cli implements the oodle command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"oodle/internal/oodle"
	"oodle/internal/store"
)

// CLI errors.
var (
	errFlagRequiresArg  = errors.New("flag requires an argument")
	errOodleRequired    = errors.New("oodle name is required")
	errMessageIDInvalid = errors.New("message id must be a positive integer")
	errEmptyMessage     = errors.New("empty message")
	errComposeAborted   = errors.New("compose aborted")
)

// App holds everything commands need to run.
type App struct {
	Config oodle.Config
	Store  *store.Store
	In     io.Reader
}

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	o := NewIO(out, errOut)

	if len(args) < 2 {
		printUsage(o, nil)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	cfg, err := oodle.LoadConfig(oodle.LoadConfigInput{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		DataDirOverride: flags.dataDir,
		Env:             env,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	st, err := store.Open(cfg.DataDirAbs)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	app := &App{Config: cfg, Store: st, In: in}
	commands := newCommands(app)

	if len(flags.remaining) == 0 {
		printUsage(o, commands)

		return 0
	}

	name := flags.remaining[0]
	if name == "-h" || name == "--help" {
		printUsage(o, commands)

		return 0
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, flags.remaining[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	printUsage(o, commands)

	return 1
}

func newCommands(app *App) []*Command {
	return []*Command{
		cmdPost(app),
		cmdShow(app),
		cmdEdit(app),
		cmdCat(app),
		cmdLs(app),
	}
}

func printUsage(o *IO, commands []*Command) {
	o.Println("Usage: oodle [global flags] <command> [args]")
	o.Println()
	o.Println("A files-first message journal. Each oodle is a plain text file")
	o.Println("you can read and edit without this tool.")
	o.Println()
	o.Println("Commands:")

	if commands == nil {
		commands = newCommands(nil)
	}

	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}

	o.Println()
	o.Println("Global flags:")
	o.Println("  -C <dir>         run as if started in <dir>")
	o.Println("  -c <file>        use an explicit config file")
	o.Println("  --data-dir <dir> override the oodle directory")
}

type globalFlags struct {
	workDir    string
	configPath string
	dataDir    string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0

	for idx < len(args) {
		arg := args[idx]

		switch arg {
		case "-C", "--cwd":
			value, err := flagValue(args, idx, arg)
			if err != nil {
				return globalFlags{}, err
			}

			flags.workDir = value
			idx += 2

		case "-c", "--config":
			value, err := flagValue(args, idx, arg)
			if err != nil {
				return globalFlags{}, err
			}

			flags.configPath = value
			idx += 2

		case "--data-dir":
			value, err := flagValue(args, idx, arg)
			if err != nil {
				return globalFlags{}, err
			}

			flags.dataDir = value
			idx += 2

		default:
			flags.remaining = args[idx:]

			return flags, nil
		}
	}

	return flags, nil
}

func flagValue(args []string, idx int, name string) (string, error) {
	if idx+1 >= len(args) {
		return "", fmt.Errorf("%w: %s", errFlagRequiresArg, name)
	}

	return args[idx+1], nil
}
