package balancer

import (
	"strings"
)

// anchorPattern matches the opening line of the balancer block (sed BRE).
const anchorPattern = `<Proxy "balancer:.*>`

// Commands builds the argv vectors for balancer operations on one file.
type Commands struct {
	// ConfigPath is the balancer configuration file inside the container.
	ConfigPath string
	// Binary is the httpd control binary.
	Binary string
}

// Exists returns a command exiting 0 when the member line is present and
// 1 when it is absent. It matches the whole line as a fixed string.
func (c Commands) Exists(m Member) []string {
	return []string{"grep", "-F", "-x", "-q", "-e", m.Line(), "--", c.ConfigPath}
}

// Add returns a command inserting the member line after the anchor.
func (c Commands) Add(m Member) []string {
	expr := `s|\(` + anchorPattern + `\)|\1\n` + escapeReplacement(m.Line()) + `|`
	return []string{"sed", "-i", "-e", expr, "--", c.ConfigPath}
}

// Remove returns a command deleting the member line. Removing an absent
// line succeeds without changes.
func (c Commands) Remove(m Member) []string {
	expr := `/^` + escapeBRE(m.Line()) + `$/d`
	return []string{"sed", "-i", "-e", expr, "--", c.ConfigPath}
}

// Reload returns the graceful restart command.
func (c Commands) Reload() []string {
	return []string{c.Binary, "-k", "graceful"}
}

// escapeBRE escapes s for use inside a /-delimited sed basic regular expression.
func escapeBRE(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '.', '*', '[', ']', '^', '$', '/':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeReplacement escapes s for use as a |-delimited sed replacement.
func escapeReplacement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '&', '|':
			b.WriteByte('\\')
		case '\n':
			b.WriteString(`\n`)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
