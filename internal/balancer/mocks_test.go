package balancer

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	utilexec "k8s.io/client-go/util/exec"
)

// MockExecutor records commands and answers with ExecFunc.
type MockExecutor struct {
	mu sync.Mutex

	ExecFunc func(ctx context.Context, command []string, stdout, stderr io.Writer) error

	Calls [][]string
}

func (m *MockExecutor) Exec(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, slices.Clone(command))
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, command, stdout, stderr)
	}
	return nil
}

// exitCode returns the error a remote command exiting with code produces.
func exitCode(code int) error {
	return utilexec.CodeExitError{Err: errors.New("command terminated with non-zero exit code"), Code: code}
}

// fileExecutor interprets the commands built by Commands against an
// in-memory file, so tests can assert on resulting file content.
type fileExecutor struct {
	mu      sync.Mutex
	lines   []string
	reloads int
}

func newFileExecutor(content string) *fileExecutor {
	return &fileExecutor{lines: strings.Split(strings.TrimSuffix(content, "\n"), "\n")}
}

func (f *fileExecutor) content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.lines, "\n") + "\n"
}

func (f *fileExecutor) Exec(_ context.Context, command []string, _, stderr io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch command[0] {
	case "grep":
		// grep -F -x -q -e LINE -- PATH
		if slices.Contains(f.lines, command[5]) {
			return nil
		}
		return exitCode(1)
	case "sed":
		// sed -i -e EXPR -- PATH
		expr := command[3]
		switch {
		case strings.HasPrefix(expr, `s|`):
			insert := unescape(strings.TrimSuffix(expr[strings.Index(expr, `\1\n`)+len(`\1\n`):], "|"))
			var out []string
			for _, l := range f.lines {
				out = append(out, l)
				if strings.HasPrefix(l, `<Proxy "balancer:`) && strings.HasSuffix(l, ">") {
					out = append(out, insert)
				}
			}
			f.lines = out
		case strings.HasPrefix(expr, `/^`) && strings.HasSuffix(expr, `$/d`):
			target := unescape(strings.TrimSuffix(strings.TrimPrefix(expr, `/^`), `$/d`))
			f.lines = slices.DeleteFunc(f.lines, func(l string) bool { return l == target })
		default:
			_, _ = io.WriteString(stderr, "sed: unsupported expression")
			return exitCode(1)
		}
		return nil
	default:
		f.reloads++
		return nil
	}
}

// unescape drops the backslash in front of each escaped character.
func unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
