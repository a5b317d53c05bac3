// Package screen holds the controllers behind the storefront's screens. Each controller keeps
// form state, runs mutations against the document store under its own lifetime and, for list
// screens, mirrors a live collection.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

var ErrIllegalTransition = errors.New("illegal transition of form phase")

type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseEditing    Phase = "EDITING"
)

func (p Phase) String() string {
	return string(p)
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeDeleted NoticeKind = "deleted"
	NoticeError   NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind
	Message string
}

// Status is a copy of a screen's form state. Error is set while the form is Idle-with-Error, or
// Editing after a failed update.
type Status struct {
	Phase     Phase
	EditingID string
	Error     string
	Notice    Notice
}

type formState struct {
	mu     sync.Mutex
	phase  Phase
	target string
	errMsg string
	notice Notice
	closed bool
}

func newFormState() formState {
	return formState{phase: PhaseIdle}
}

func (f *formState) status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Phase: f.phase, EditingID: f.target, Error: f.errMsg, Notice: f.notice}
}

// begin moves the form into Submitting. An empty target starts from Idle; otherwise the form must
// be editing exactly that target. A validate failure leaves the phase unchanged and shows the error.
func (f *formState) begin(target string, validate func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return context.Canceled
	}
	switch {
	case f.phase == PhaseIdle && target == "":
	case f.phase == PhaseEditing && target != "" && target == f.target:
	default:
		return illegal(f.phase, "submit")
	}

	if validate != nil {
		if err := validate(); err != nil {
			f.errMsg = userMessage(err, err.Error())
			f.notice = Notice{Kind: NoticeError, Message: f.errMsg}
			return err
		}
	}

	f.phase = PhaseSubmitting
	f.errMsg = ""
	f.notice = Notice{}
	return nil
}

// finish leaves Submitting. Success lands in Idle; a failed update goes back to editing its target,
// anything else to Idle with the error shown. Nothing is applied once the form is closed.
func (f *formState) finish(err error, failMsg string, ok Notice) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if err != nil {
		f.errMsg = userMessage(err, failMsg)
		f.notice = Notice{Kind: NoticeError, Message: f.errMsg}
		if f.target != "" {
			f.phase = PhaseEditing
		} else {
			f.phase = PhaseIdle
		}
		return true
	}

	f.phase = PhaseIdle
	f.target = ""
	f.errMsg = ""
	f.notice = ok
	return true
}

func (f *formState) edit(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.phase == PhaseIdle:
	case f.phase == PhaseEditing && f.target == id:
	default:
		return illegal(f.phase, "edit "+id)
	}
	f.phase = PhaseEditing
	f.target = id
	f.errMsg = ""
	f.notice = Notice{}
	return nil
}

func (f *formState) cancelEdit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == PhaseSubmitting {
		return illegal(f.phase, "cancel edit")
	}
	f.phase = PhaseIdle
	f.target = ""
	f.errMsg = ""
	return nil
}

// editing returns the current edit target, or "" when not editing.
func (f *formState) editing() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseEditing {
		return ""
	}
	return f.target
}

func (f *formState) fail(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errMsg = msg
	f.notice = Notice{Kind: NoticeError, Message: msg}
}

func (f *formState) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func illegal(from Phase, action string) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, action, from)
}

// userMessage shows validation messages as they are and hides everything else behind fallback.
func userMessage(err error, fallback string) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return fallback
}
