package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// composeMessage collects message lines until the author enters a lone ".",
// mirroring the file format's terminator. On a real terminal it runs a
// liner prompt; otherwise (piped input, tests) it reads plain lines from in.
func composeMessage(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return composeInteractive()
	}

	return composePlain(in)
}

func composeInteractive() (string, error) {
	rl := liner.NewLiner()
	defer func() { _ = rl.Close() }()

	rl.SetCtrlCAborts(true)

	var lines []string

	for {
		line, err := rl.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", errComposeAborted
			}

			if errors.Is(err, io.EOF) {
				break
			}

			return "", err
		}

		if line == terminatorLine {
			break
		}

		lines = append(lines, line)
	}

	return joinComposed(lines)
}

func composePlain(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)

	var lines []string

	for scanner.Scan() {
		line := scanner.Text()
		if line == terminatorLine {
			break
		}

		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return joinComposed(lines)
}

const terminatorLine = "."

func joinComposed(lines []string) (string, error) {
	if len(lines) == 0 {
		return "", errEmptyMessage
	}

	return strings.Join(lines, "\n"), nil
}
