package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		New("adversarial_probability must be between 0 and 1"),
		New("max_cycles must be positive"),
	}

	msg := errs.Error()
	if !strings.Contains(msg, "adversarial_probability") {
		t.Errorf("expected first failure in message, got %q", msg)
	}
	if !strings.Contains(msg, "max_cycles") {
		t.Errorf("expected second failure in message, got %q", msg)
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var errs ValidationErrors
	if got := errs.Error(); got != "configuration is invalid" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	sentinel := New("bad value")
	errs := ValidationErrors{sentinel}
	if !stderrors.Is(errs, sentinel) {
		t.Error("errors.Is should find wrapped validation failure")
	}
}

func TestNotFoundErrorMatchesSentinel(t *testing.T) {
	err := NewNotFoundError("proposal", "missing.md")
	if !Is(err, ErrProposalNotFound) {
		t.Error("proposal NotFoundError should match ErrProposalNotFound")
	}

	other := NewNotFoundError("stimulus", "x.md")
	if Is(other, ErrProposalNotFound) {
		t.Error("non-proposal NotFoundError should not match ErrProposalNotFound")
	}
}

func TestLockError(t *testing.T) {
	err := NewLockError(4242, "/tmp/proj/.kaizen/lock")
	if !Is(err, ErrProjectLocked) {
		t.Error("LockError should match ErrProjectLocked")
	}
	if !strings.Contains(err.Error(), "4242") {
		t.Errorf("expected blocking pid in message, got %q", err.Error())
	}
}

func TestGitErrorContext(t *testing.T) {
	cause := New("exit status 1")
	err := NewGitError("failed to commit changes", cause).
		WithBranch("kaizen/cycle-7").
		WithGitOutput("nothing added to commit\n")

	msg := err.Error()
	for _, want := range []string{"failed to commit changes", "kaizen/cycle-7", "nothing added to commit"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if !Is(err, cause) {
		t.Error("GitError should unwrap to its cause")
	}
}

func TestVerifyErrorTruncatesOutput(t *testing.T) {
	long := strings.Repeat("x", 10000)
	err := NewVerifyError("test", "go test ./...", long, New("exit status 2"))
	if len(err.Output) > 4000 {
		t.Errorf("output not truncated: %d bytes", len(err.Output))
	}
	if !strings.Contains(err.Error(), "go test ./...") {
		t.Errorf("expected command in message, got %q", err.Error())
	}
}
