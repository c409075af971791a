// ABOUTME: Interactive prompts and command-line flag parsing for the chat client
// ABOUTME: Passwords are read without echo when stdin is a terminal

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// stdinIsTerminal reports whether passwords can be read without echo.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt asks question and returns the trimmed answer, or defaultVal when
// the answer is empty or input has ended.
func (a *app) prompt(question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(a.out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(a.out, "%s: ", question)
	}

	input, err := a.readLine()
	if err != nil {
		fmt.Fprintln(a.out)
		return defaultVal
	}
	if input == "" {
		return defaultVal
	}
	return input
}

// promptPassword reads a password. On a terminal echo is disabled; otherwise
// one line is read from the input stream so passwords can be piped in.
func (a *app) promptPassword(question string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", question)

	if stdinIsTerminal() {
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}

	line, err := a.readLine()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return line, nil
}

// confirm asks a yes/no question that defaults to no.
func (a *app) confirm(question string) bool {
	answer := strings.ToLower(a.prompt(question+" [y/N]", ""))
	return answer == "y" || answer == "yes"
}

// readLine returns the next input line without its newline. A final line
// without a newline is returned before io.EOF.
func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// cmdArgs is a parsed command line: positionals plus --flag values.
type cmdArgs struct {
	positional []string
	values     map[string]string
	bools      map[string]bool
}

// parseArgs accepts "--name value" and "--name=value" for valueFlags and bare
// "--name" for boolFlags. Anything else starting with "--" is rejected.
func parseArgs(args []string, valueFlags, boolFlags []string) (*cmdArgs, error) {
	isValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		isValue[f] = true
	}
	isBool := make(map[string]bool, len(boolFlags))
	for _, f := range boolFlags {
		isBool[f] = true
	}

	parsed := &cmdArgs{values: map[string]string{}, bools: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			parsed.positional = append(parsed.positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "--") {
			parsed.positional = append(parsed.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		switch {
		case isBool[name] && !hasValue:
			parsed.bools[name] = true
		case isValue[name] && hasValue:
			parsed.values[name] = value
		case isValue[name]:
			if i+1 >= len(args) {
				return nil, usageError("--%s needs a value", name)
			}
			i++
			parsed.values[name] = args[i]
		default:
			return nil, usageError("unknown flag %s", arg)
		}
	}
	return parsed, nil
}

// arg returns positional i or "".
func (c *cmdArgs) arg(i int) string {
	if i < len(c.positional) {
		return c.positional[i]
	}
	return ""
}

// rest joins positionals from i onward with spaces.
func (c *cmdArgs) rest(i int) string {
	if i >= len(c.positional) {
		return ""
	}
	return strings.Join(c.positional[i:], " ")
}
