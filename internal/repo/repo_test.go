package repo

import (
	"context"
	"strings"
	"testing"
)

// scriptedRunner returns canned output for git/gh invocations, keyed by
// the joined command line, so tests can drive Manager without a real repo.
type scriptedRunner struct {
	calls   []string
	replies map[string]string
	errs    map[string]bool
}

func (r *scriptedRunner) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, key)
	if r.errs[key] {
		return r.replies[key], errFake
	}
	return r.replies[key], nil
}

var errFake = &fakeErr{}

type fakeErr struct{}

func (*fakeErr) Error() string { return "fake command failure" }

func newManager() (*Manager, *scriptedRunner) {
	sr := &scriptedRunner{replies: map[string]string{}, errs: map[string]bool{}}
	m := New("/work", "main")
	m.Run = sr.run
	return m, sr
}

func TestGetStatusParsesFields(t *testing.T) {
	m, sr := newManager()
	sr.replies["git rev-parse --abbrev-ref HEAD"] = "feature-x\n"
	sr.replies["git rev-parse HEAD"] = "abc123\n"
	sr.replies["git rev-list --count main..HEAD"] = "3\n"
	sr.replies["git status --porcelain"] = " M file.go\n"

	status, err := m.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Branch != "feature-x" || status.HeadRef != "abc123" || status.CommitsAhead != 3 || !status.HasUncommitted {
		t.Errorf("GetStatus() = %+v, unexpected", status)
	}
}

func TestEnsureOnBranchNoop(t *testing.T) {
	m, sr := newManager()
	sr.replies["git rev-parse --abbrev-ref HEAD"] = "agent/task-1\n"
	branch, err := m.EnsureOnBranch(context.Background(), "agent/task-1")
	if err != nil {
		t.Fatalf("EnsureOnBranch() error = %v", err)
	}
	if branch != "agent/task-1" {
		t.Errorf("branch = %q, want agent/task-1", branch)
	}
}

func TestEnsureOnBranchRejectsWrongBranch(t *testing.T) {
	m, sr := newManager()
	sr.replies["git rev-parse --abbrev-ref HEAD"] = "other-branch\n"
	if _, err := m.EnsureOnBranch(context.Background(), "agent/task-1"); err == nil {
		t.Error("expected error when on a different named branch")
	}
}

func TestPushBranchRejectsDetachedHead(t *testing.T) {
	m, sr := newManager()
	sr.replies["git rev-parse --abbrev-ref HEAD"] = "HEAD\n"
	if _, err := m.PushBranch(context.Background(), false); err == nil {
		t.Error("expected error pushing from detached HEAD")
	}
}

func TestRebaseOnBaseUpToDate(t *testing.T) {
	m, sr := newManager()
	sr.replies["git fetch origin main"] = ""
	sr.replies["git rev-list --count HEAD..origin/main"] = "0\n"

	result := m.RebaseOnBase(context.Background())
	if result.Status != RebaseUpToDate {
		t.Errorf("Status = %v, want up_to_date", result.Status)
	}
}

func TestRebaseOnBaseConflictAborts(t *testing.T) {
	m, sr := newManager()
	sr.replies["git fetch origin main"] = ""
	sr.replies["git rev-list --count HEAD..origin/main"] = "2\n"
	sr.errs["git rebase origin/main"] = true
	sr.replies["git rebase origin/main"] = "CONFLICT (content): file.go\n"

	result := m.RebaseOnBase(context.Background())
	if result.Status != RebaseConflict {
		t.Fatalf("Status = %v, want conflict", result.Status)
	}
	found := false
	for _, c := range sr.calls {
		if c == "git rebase --abort" {
			found = true
		}
	}
	if !found {
		t.Error("expected rebase --abort after conflict")
	}
}

func TestMergePRReturnsFalseOnFailure(t *testing.T) {
	m, sr := newManager()
	sr.errs["gh pr merge 42 --merge"] = true
	if m.MergePR(context.Background(), 42, "") {
		t.Error("MergePR() should return false on CLI failure")
	}
}
