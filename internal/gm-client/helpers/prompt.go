package helpers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

const MinPasswordLength = 8

// PasswordFromEnvOrPrompt returns the value of envKey when set, otherwise asks
// on the terminal. The returned buffer should be zeroed by the caller.
func PasswordFromEnvOrPrompt(envKey, prompt string) ([]byte, error) {
	if v := os.Getenv(envKey); v != "" {
		pw := []byte(v)
		if err := ValidatePassword(pw); err != nil {
			ZeroBytes(pw)
			return nil, errors.Wrapf(err, "%s", envKey)
		}
		return pw, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.Newf("no terminal to prompt for the wallet password; set %s", envKey)
	}
	return PromptPassword(prompt)
}

func PromptPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		ZeroBytes(pw)
		return nil, errors.Wrap(err, "password input failed")
	}

	if err := ValidatePassword(pw); err != nil {
		ZeroBytes(pw)
		return nil, err
	}
	return pw, nil
}

func ValidatePassword(pw []byte) error {
	if len(pw) < MinPasswordLength {
		return errors.Newf("password must be at least %d characters long", MinPasswordLength)
	}
	for _, b := range pw {
		if !IsAllowedPasswordChar(b) {
			return errors.New("password contains invalid characters (use letters, numbers, and special characters only)")
		}
	}
	return nil
}

// IsAllowedPasswordChar accepts printable ASCII without spaces.
func IsAllowedPasswordChar(b byte) bool {
	return b > ' ' && b <= '~'
}

// PromptLineWithDefault reads one line from r, falling back to def.
func PromptLineWithDefault(r io.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" || (err != nil && err != io.EOF) {
		return def
	}
	return line
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
