package diag

import "github.com/fatih/color"

// PrintErr renders err the way every original binary renders a fatal
// error before exiting: plain red text, no prefix.
func PrintErr(err error) {
	color.New(color.FgRed).Println(err.Error())
}

// Notice prints a cyan "Notice: " line, matching the linker's "no binary
// header defined" message when no object carries a HeaderConstructor.
func Notice(format string, args ...any) {
	color.New(color.FgCyan).Printf("Notice: ")
	color.New(color.FgWhite).Printf(format+"\n", args...)
}

// Separator prints the magenta rule the VM binary prints around its run.
func Separator() {
	color.New(color.FgMagenta).Println("-------------------------")
}
