package email

import (
	"context"
	"strings"
	"testing"

	"hrdesk/internal/domain/notifications"
	"hrdesk/internal/platform/config"
)

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	if _, ok := mailer.(noopMailer); !ok {
		t.Fatalf("expected noop mailer, got %T", mailer)
	}
	if err := mailer.Send(context.Background(), notifications.Message{To: "a@example.com"}); err != nil {
		t.Fatalf("noop send failed: %v", err)
	}
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	raw := string(buildMessage("hr@example.com", notifications.Message{
		To:      "a@example.com",
		Subject: "Hello\r\nBcc: evil@example.com",
		Body:    "body",
	}))
	if strings.Contains(raw, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nbody") {
		t.Fatalf("expected body after blank line, got %q", raw)
	}
}
