package prompt

import (
	"github.com/manifoldco/promptui"
)

// Password prompts for a password with masked input. An empty answer is
// allowed for servers that accept anonymous access.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}
