package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text input.
func Input(label string, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputRequired prompts until a non-empty value is entered.
func InputRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validateRequired,
	}

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputPort prompts for a network port. An empty answer or 0 selects the
// protocol default.
func InputPort(label string, defaultValue int) (int, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  strconv.Itoa(defaultValue),
		Validate: validatePort,
	}

	result, err := prompt.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	if strings.TrimSpace(result) == "" {
		return 0, nil
	}

	value, _ := strconv.Atoi(strings.TrimSpace(result))
	return value, nil
}

func validateRequired(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func validatePort(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	port, err := strconv.Atoi(input)
	if err != nil {
		return fmt.Errorf("must be a valid integer")
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("must be a valid port (0-65535)")
	}
	return nil
}
