package display

import (
	"fmt"
	"os"

	"github.com/backmassage/structpipe/internal/logging"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if logging.Magenta != "" {
		fmt.Fprint(os.Stdout, "\033[1;95m")
	}
	fmt.Fprint(os.Stdout, ` ____  _                   _   ____  _
/ ___|| |_ _ __ _   _  ___| |_|  _ \(_)_ __   ___
\___ \| __| '__| | | |/ __| __| |_) | | '_ \ / _ \
 ___) | |_| |  | |_| | (__| |_|  __/| | |_) |  __/
|____/ \__|_|   \__,_|\___|\__|_|   |_| .__/ \___|
                                      |_|
`)
	if logging.Magenta != "" {
		fmt.Fprintln(os.Stdout, logging.NC)
	}
}
