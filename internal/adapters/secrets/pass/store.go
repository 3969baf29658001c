package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
)

// entryPrefix is the pass folder every chatlink credential lives in.
const entryPrefix = "chatlink/"

const missingEntry = "is not in the password store"

var (
	ErrUnavailable = errors.New("pass command unavailable")
	// ErrMultiline is returned for values pass could not hand back intact:
	// only the first line of an entry is read as the credential.
	ErrMultiline = errors.New("credential spans several lines")
)

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

// Store keeps credentials in the pass password manager.
// chatlink://work/password is the entry chatlink/work/password.
type Store struct {
	run runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: runPassCommand}
}

func entryFor(ref domain.CredentialRef) string {
	return entryPrefix + ref.Path()
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	ref, err := resolve(ctx, key)
	if err != nil {
		return err
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("pass put %s: %w", ref, ErrMultiline)
	}

	_, err = s.exec(ctx, "put", ref, value+"\n", "insert", "-m", "-f", entryFor(ref))
	return err
}

// Get returns the first line of the entry, the line Put wrote.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ref, err := resolve(ctx, key)
	if err != nil {
		return "", err
	}

	stdout, err := s.exec(ctx, "get", ref, "", "show", entryFor(ref))
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ref, err := resolve(ctx, key)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, "delete", ref, "", "rm", "-f", entryFor(ref))
	return err
}

func resolve(ctx context.Context, key string) (domain.CredentialRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.CredentialRef{}, err
	}
	return domain.ParseCredentialRef(key)
}

// exec runs one pass command for ref. A missing entry maps to
// domain.ErrSecretNotFound.
func (s *Store) exec(ctx context.Context, op string, ref domain.CredentialRef, input string, args ...string) (string, error) {
	stdout, stderr, err := s.run(ctx, input, args...)
	switch {
	case err == nil:
		return stdout, nil
	case strings.Contains(stderr, missingEntry):
		return "", fmt.Errorf("pass %s %s: %w", op, ref, domain.ErrSecretNotFound)
	case stderr == "":
		return "", fmt.Errorf("pass %s %s: %w", op, ref, err)
	default:
		return "", fmt.Errorf("pass %s %s: %w: %s", op, ref, err, stderr)
	}
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
