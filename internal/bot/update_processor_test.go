package bot

import (
	"context"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

type recordingHandler struct {
	calls   int
	proceed bool
	err     error
	user    *api.User
}

func (h *recordingHandler) Handle(_ context.Context, _ *api.Update, _ *api.Chat, user *api.User) (bool, error) {
	h.calls++
	h.user = user
	return h.proceed, h.err
}

func TestProcessNilUpdate(t *testing.T) {
	t.Parallel()

	up := &UpdateProcessor{}
	if err := up.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected an error for a nil update")
	}
}

func TestProcessSkipsOutdatedUpdates(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{handler}}

	u := &api.Update{Message: &api.Message{
		Date: int(time.Now().Add(-10 * time.Minute).Unix()),
	}}
	if err := up.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if handler.calls != 0 {
		t.Fatalf("outdated update must not reach handlers, got %d calls", handler.calls)
	}
}

func TestProcessExtractsCallbackSender(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{handler}}

	u := &api.Update{CallbackQuery: &api.CallbackQuery{
		From: &api.User{ID: 9},
	}}
	if err := up.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler should run once, got %d calls", handler.calls)
	}
	if handler.user == nil || handler.user.ID != 9 {
		t.Fatalf("callback sender not extracted: %+v", handler.user)
	}
}

func TestProcessHandlerChain(t *testing.T) {
	t.Parallel()

	stopper := &recordingHandler{proceed: false}
	next := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{stopper, next}}

	u := &api.Update{CallbackQuery: &api.CallbackQuery{From: &api.User{ID: 9}}}
	if err := up.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if stopper.calls != 1 {
		t.Fatalf("first handler should run once, got %d", stopper.calls)
	}
	if next.calls != 0 {
		t.Fatalf("chain must stop when a handler does not proceed, got %d calls", next.calls)
	}
}

func TestProcessHandlerError(t *testing.T) {
	t.Parallel()

	failing := &recordingHandler{err: errors.New("boom")}
	next := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{failing, next}}

	u := &api.Update{CallbackQuery: &api.CallbackQuery{From: &api.User{ID: 9}}}
	if err := up.Process(context.Background(), u); err == nil {
		t.Fatalf("expected handler error to propagate")
	}
	if next.calls != 0 {
		t.Fatalf("chain must stop on error, got %d calls", next.calls)
	}
}

func TestGetUN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *api.User
		want string
	}{
		{name: "nil user", user: nil, want: ""},
		{name: "username preferred", user: &api.User{UserName: "spammer", FirstName: "John"}, want: "spammer"},
		{name: "falls back to full name", user: &api.User{FirstName: "John", LastName: "Doe"}, want: "John Doe"},
		{name: "first name only", user: &api.User{FirstName: "John"}, want: "John"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUN(tt.user); got != tt.want {
				t.Fatalf("GetUN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *api.User
		want string
	}{
		{name: "nil user", user: nil, want: ""},
		{name: "full name preferred", user: &api.User{UserName: "spammer", FirstName: "John", LastName: "Doe"}, want: "John Doe"},
		{name: "falls back to username", user: &api.User{UserName: "spammer"}, want: "spammer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetFullName(tt.user); got != tt.want {
				t.Fatalf("GetFullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
