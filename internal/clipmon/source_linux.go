//go:build linux

package clipmon

import (
	"os/exec"
	"strings"

	"proctord/internal/engine"
)

// execSource reads the clipboard through the usual selection tools.
// Tries xclip, then xsel, then wl-paste for Wayland.
type execSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return execSource{}
}

func (execSource) Poll() (Snapshot, error) {
	content, err := readText()
	if err != nil {
		// No tool available or empty selection; report an absent
		// clipboard rather than a poll failure.
		return Snapshot{}, nil
	}
	return Snapshot{
		Content: content,
		Format:  contentType(),
		Present: true,
	}, nil
}

func readText() (string, error) {
	out, err := exec.Command("xclip", "-selection", "clipboard", "-o").Output()
	if err == nil {
		return string(out), nil
	}

	out, err = exec.Command("xsel", "--clipboard", "--output").Output()
	if err == nil {
		return string(out), nil
	}

	out, err = exec.Command("wl-paste", "--no-newline").Output()
	if err == nil {
		return string(out), nil
	}

	return "", err
}

func contentType() string {
	out, err := exec.Command("xclip", "-selection", "clipboard", "-t", "TARGETS", "-o").Output()
	if err != nil {
		return "text"
	}
	targets := string(out)
	switch {
	case strings.Contains(targets, "image/"):
		return "image"
	case strings.Contains(targets, "text/uri-list"):
		return "files"
	default:
		return "text"
	}
}
