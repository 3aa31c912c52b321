package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func shellCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one loaded session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			a.init()
			fmt.Fprintln(a.Out, "jotter shell; type 'help' for commands, 'exit' to leave")
			for {
				fmt.Fprint(a.Out, "jotter> ")
				line, err := a.reader.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				words := splitWords(line)
				switch {
				case len(words) == 0:
				case words[0] == "exit" || words[0] == "quit":
					return nil
				case words[0] == "shell":
					fmt.Fprintln(a.Out, "already in the shell")
				default:
					root := newRoot(h)
					root.SetArgs(words)
					root.SetOut(a.Out)
					root.SetErr(a.Out)
					if runErr := root.ExecuteContext(cmd.Context()); runErr != nil {
						fmt.Fprintln(a.Out, "error:", Message(runErr))
					}
				}
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(a.Out)
					return nil
				}
			}
		},
	}
}

// splitWords splits on whitespace and keeps double-quoted runs together.
func splitWords(line string) []string {
	var (
		words  []string
		cur    strings.Builder
		quoted bool
		inWord bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words
}
