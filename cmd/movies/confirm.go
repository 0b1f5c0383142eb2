package movies

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tphakala/binged/internal/tracker"
)

// newConfirmer answers the delete prompt. With assumeYes it always agrees.
// Otherwise it asks on stderr and reads a line from the command's input;
// on a non-interactive os.Stdin it refuses.
func newConfirmer(cmd *cobra.Command, assumeYes bool) tracker.Confirmer {
	return tracker.ConfirmFunc(func(prompt string) bool {
		if assumeYes {
			return true
		}

		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && f == os.Stdin && !term.IsTerminal(int(f.Fd())) {
			cmd.PrintErrln("Refusing to delete without --yes when input is not a terminal")
			return false
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}
