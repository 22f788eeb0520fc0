package cmd

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// passwordPrompter asks the operator for a secret.
type passwordPrompter interface {
	Password(message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Password(message string) (string, error) {
	var secret string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &secret, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return secret, nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
