package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/dt-pm-tools/r2c/internal/config"
	"github.com/dt-pm-tools/r2c/internal/redmine"
	"golang.org/x/term"
)

var stdinReader = bufio.NewReader(os.Stdin)

func interactive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// askLine prompts on stderr and reads one line. An empty answer keeps def.
func askLine(reader *bufio.Reader, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// askSecret reads a value without echoing it. An empty answer keeps def.
func askSecret(label, def string) (string, error) {
	if !interactive() {
		return askLine(stdinReader, label, def)
	}
	hint := ""
	if def != "" {
		hint = ", enter keeps the current one"
	}
	fmt.Fprintf(os.Stderr, "%s (input hidden%s): ", label, hint)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return def, nil
	}
	return v, nil
}

var keyLabels = map[string]string{
	"redmine_api_key": "Redmine API key",
	"clickup_api_key": "ClickUp API key",
	"clickup_team_id": "ClickUp team ID",
}

// promptMissing asks for every missing required key and stores the answers in cfg.
func promptMissing(cfg *config.Config, missing []config.Key) error {
	for _, k := range missing {
		label := keyLabels[k.Name]
		if label == "" {
			label = k.Name
		}
		var (
			v   string
			err error
		)
		if k.Secret {
			v, err = askSecret(label, "")
		} else {
			v, err = askLine(stdinReader, label, "")
		}
		if err != nil {
			return err
		}
		if v == "" {
			return fmt.Errorf("%s is required", k.Name)
		}
		k.Set(cfg, v)
	}
	return nil
}

func validateIssueID(s string) error {
	_, err := redmine.ParseIssueID(s)
	return err
}

func validateListID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("list ID is required")
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return fmt.Errorf("list ID %q is not a number", s)
	}
	return nil
}

// askTarget asks for a migration target, using a form on a terminal and a
// plain line read otherwise.
func askTarget(title, description string, validate func(string) error) (string, error) {
	var v string
	if interactive() {
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(title).
					Description(description).
					Value(&v).
					Validate(validate),
			),
		).Run()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(v), nil
	}
	v, err := askLine(stdinReader, title, "")
	if err != nil {
		return "", err
	}
	if err := validate(v); err != nil {
		return "", err
	}
	return v, nil
}
