package ui

import (
	"os"

	survey "github.com/AlecAivazis/survey/v2"
)

// Confirm asks a yes/no question on the terminal. Any active tail box is
// finalized first so the prompt doesn't fight the live redraw.
func (l *Logger) Confirm(question string) (bool, error) {
	l.mu.Lock()
	if l.tail != nil && !l.tail.closed {
		l.finalizeTailLocked()
	}
	l.mu.Unlock()

	answer := false
	prompt := &survey.Confirm{
		Message: question,
		Default: false,
	}
	err := survey.AskOne(
		prompt,
		&answer,
		survey.WithStdio(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		return false, err
	}
	return answer, nil
}
