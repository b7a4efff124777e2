package cli

import (
	"github.com/charmbracelet/huh"
)

func confirmPrompt(title, detail string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(detail).
				Affirmative("Send").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	return ok, err
}

func passwordPrompt() (string, error) {
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keystore password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).Run()
	return password, err
}
