package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type command struct {
	name  string
	keys  []string
	value string
	ttl   time.Duration
	delta uint64
	delay time.Duration
}

// tokenize splits a line on spaces. Single or double quotes group words and a
// backslash escapes the next character.
func tokenize(line string) ([]string, error) {
	var (
		tokens    []string
		current   strings.Builder
		inToken   bool
		quoteChar rune
		escape    bool
	)

	for _, char := range strings.TrimSpace(line) {
		switch {
		case escape:
			current.WriteRune(char)
			escape = false
		case char == '\\':
			escape = true
			inToken = true
		case quoteChar != 0:
			if char == quoteChar {
				quoteChar = 0
			} else {
				current.WriteRune(char)
			}
		case char == '"' || char == '\'':
			quoteChar = char
			inToken = true
		case char == ' ' || char == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(char)
			inToken = true
		}
	}

	if quoteChar != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func parse(line string) (command, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return command{}, err
	}
	if len(tokens) == 0 {
		return command{}, errors.New("empty query")
	}

	cmd := command{name: strings.ToLower(tokens[0])}
	args := tokens[1:]

	switch cmd.name {
	case "get":
		if len(args) != 1 {
			return cmd, errors.New("usage: get <key>")
		}
		cmd.keys = args

	case "gets":
		if len(args) < 1 {
			return cmd, errors.New("usage: gets <key> [key...]")
		}
		cmd.keys = args

	case "set", "add", "replace", "append", "prepend":
		if len(args) < 2 || len(args) > 3 {
			return cmd, fmt.Errorf("usage: %s <key> <value> [ttl_seconds]", cmd.name)
		}
		cmd.keys = args[:1]
		cmd.value = args[1]
		if len(args) == 3 {
			if cmd.ttl, err = parseSeconds(args[2]); err != nil {
				return cmd, fmt.Errorf("invalid ttl: %w", err)
			}
		}

	case "delete", "del":
		if len(args) < 1 {
			return cmd, errors.New("usage: delete <key> [key...]")
		}
		cmd.name = "delete"
		cmd.keys = args

	case "incr", "decr":
		if len(args) < 1 || len(args) > 2 {
			return cmd, fmt.Errorf("usage: %s <key> [delta]", cmd.name)
		}
		cmd.keys = args[:1]
		cmd.delta = 1
		if len(args) == 2 {
			if cmd.delta, err = strconv.ParseUint(args[1], 10, 64); err != nil {
				return cmd, fmt.Errorf("invalid delta: %w", err)
			}
		}

	case "flush":
		if len(args) > 1 {
			return cmd, errors.New("usage: flush [delay_seconds]")
		}
		if len(args) == 1 {
			if cmd.delay, err = parseSeconds(args[0]); err != nil {
				return cmd, fmt.Errorf("invalid delay: %w", err)
			}
		}

	case "stats":
		if len(args) != 0 {
			return cmd, errors.New("usage: stats")
		}

	default:
		return cmd, fmt.Errorf("unknown command: %s", tokens[0])
	}

	return cmd, nil
}

func parseSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// typedValue stores integers and booleans typed, anything else as text.
func typedValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
