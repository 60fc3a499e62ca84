package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// confirm pregunta sí/no en la terminal. Sin terminal interactiva se
// responde "no": para correr sin supervisión hay que pasar --yes.
func confirm(out io.Writer, question string) (bool, error) {
	if !readline.DefaultIsTerminal() {
		fmt.Fprintln(out, "⚠️  Entrada no interactiva: usa --yes para confirmar.")
		return false, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          question,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "no",
	})
	if err != nil {
		return false, fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return true
	default:
		return false
	}
}
