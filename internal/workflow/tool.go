package workflow

import (
	"fmt"
	"os/exec"
)

// toolHints maps build tool binaries to install instructions.
var toolHints = map[string]string{
	"xcodebuild": "Install Xcode from the App Store, then run: xcode-select --install",
	"pbxbuild":   "pbxbuild ships with Project Builder; use xcodebuild on current systems",
}

// ErrToolUnavailable reports that the build tool cannot be found.
// It carries install instructions when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Hint string
}

func (e ErrToolUnavailable) Error() string {
	msg := fmt.Sprintf("%s is not installed or not on PATH", e.Name)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// CheckTool verifies that name resolves to an executable.
func CheckTool(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return ErrToolUnavailable{Name: name, Hint: toolHints[name]}
	}
	return nil
}
