package main

import (
	"fmt"
	"io"
	"slices"
)

// runCat writes the payload of every member named on the command line, in
// archive order. Naming a member that is not present is an error.
func runCat(opts *options, stdout io.Writer) error {
	path, err := archiveArg(opts)
	if err != nil {
		return err
	}
	wanted := opts.args[1:]
	if len(wanted) == 0 {
		return fmt.Errorf("cat: no members named")
	}

	s, err := openArchive(opts.profile, path)
	if err != nil {
		return err
	}
	defer s.Close()

	found := make(map[string]bool, len(wanted))
	for e, err := range s.Headers() {
		if err != nil {
			return err
		}
		name := e.Pathname()
		if !slices.Contains(wanted, name) {
			continue
		}
		found[name] = true
		if _, err := s.WriteTo(stdout); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for _, name := range wanted {
		if !found[name] {
			return fmt.Errorf("%s: not found in archive", name)
		}
	}
	return s.Close()
}
