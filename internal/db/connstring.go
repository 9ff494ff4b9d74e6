package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDescriptor is wrapped by every descriptor parse failure.
var ErrInvalidDescriptor = errors.New("invalid connection descriptor")

// Descriptor is the structured form of a psql-style connection
// descriptor. The password is supplied separately and never appears in
// the descriptor text.
type Descriptor struct {
	Host     string
	Port     int
	Database string
	User     string
}

// ParseDescriptor parses the canonical connection descriptor shape:
//
//	psql -h <host> -p <port> -d <database> -U <user>
//
// Flag order does not matter; all four flags are mandatory. Anything
// else is rejected rather than guessed at.
func ParseDescriptor(text string) (Descriptor, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || fields[0] != "psql" {
		return Descriptor{}, fmt.Errorf("%w: expected %q", ErrInvalidDescriptor, descriptorShape)
	}

	var d Descriptor
	seen := map[string]bool{}

	args := fields[1:]
	for i := 0; i < len(args); i += 2 {
		flag := args[i]
		if i+1 >= len(args) {
			return Descriptor{}, fmt.Errorf("%w: flag %s has no value", ErrInvalidDescriptor, flag)
		}
		value := args[i+1]
		if strings.HasPrefix(value, "-") {
			return Descriptor{}, fmt.Errorf("%w: flag %s has no value", ErrInvalidDescriptor, flag)
		}
		if seen[flag] {
			return Descriptor{}, fmt.Errorf("%w: duplicate flag %s", ErrInvalidDescriptor, flag)
		}
		seen[flag] = true

		switch flag {
		case "-h":
			d.Host = value
		case "-p":
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 {
				return Descriptor{}, fmt.Errorf("%w: port must be a positive integer, got %q", ErrInvalidDescriptor, value)
			}
			d.Port = port
		case "-d":
			d.Database = value
		case "-U":
			d.User = value
		default:
			return Descriptor{}, fmt.Errorf("%w: unsupported flag %s", ErrInvalidDescriptor, flag)
		}
	}

	var missing []string
	if d.Host == "" {
		missing = append(missing, "-h host")
	}
	if d.Port == 0 {
		missing = append(missing, "-p port")
	}
	if d.Database == "" {
		missing = append(missing, "-d database")
	}
	if d.User == "" {
		missing = append(missing, "-U user")
	}
	if len(missing) > 0 {
		return Descriptor{}, fmt.Errorf("%w: missing %s; expected %q", ErrInvalidDescriptor, strings.Join(missing, ", "), descriptorShape)
	}

	return d, nil
}

const descriptorShape = "psql -h hostname -p port -d database -U username"
