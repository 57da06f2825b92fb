package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// errAborted is returned when the user declines the confirmation.
var errAborted = errors.New("apply aborted")

var (
	// isInteractive reports whether a user can answer prompts.
	isInteractive = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	// confirm asks the user a yes/no question.
	confirm = func(ctx context.Context, title, description string) (bool, error) {
		var ok bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Affirmative("Apply").
					Negative("Cancel").
					Value(&ok),
			),
		).RunWithContext(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return ok, err
	}
)

// confirmApply returns nil when the apply may go ahead.
func confirmApply(ctx context.Context, cluster string, steps int) error {
	if !isInteractive() {
		return fmt.Errorf("refusing to apply without a terminal to confirm on; pass --yes")
	}
	ok, err := confirm(ctx,
		fmt.Sprintf("Apply %d steps to cluster %s?", steps, cluster),
		"Missing AWS resources are created and add-ons are installed or upgraded.")
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return errAborted
	}
	return nil
}
