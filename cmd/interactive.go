package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoPassword = errors.New("backup is encrypted and no password was given")

// promptString prompts until a value is entered. With a default, an empty
// answer returns it. Read errors end the prompt with the default.
func promptString(reader *bufio.Reader, out io.Writer, prompt string, required bool, defaultValue string) string {
	for {
		if defaultValue != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultValue)
		} else if required {
			fmt.Fprintf(out, "%s (required): ", prompt)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if !errors.Is(err, io.EOF) {
				errorColor.Fprintf(out, "Error reading input: %v\n", err)
			}
			return defaultValue
		}
		input = strings.TrimRight(input, "\r\n")

		if input == "" {
			if defaultValue != "" {
				return defaultValue
			}
			if !required {
				return ""
			}
			errorColor.Fprintln(out, "This field is required")
			continue
		}

		return input
	}
}

// promptPassword asks for the backup password. The answer is not trimmed
// beyond the line ending; backup passwords may carry spaces.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	reader := bufio.NewReader(in)
	password := promptString(reader, out, "Backup password", true, "")
	if password == "" {
		return "", errNoPassword
	}
	return password, nil
}
