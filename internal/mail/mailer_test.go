package mail

import (
	"strings"
	"testing"
	"time"
)

func TestComposeMessageHeaders(t *testing.T) {
	msg := string(ComposeMessage("noreply@example.com", "admin@example.com", "Subject Line", "body text"))

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: admin@example.com\r\n",
		"Subject: Subject Line\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if !strings.HasSuffix(msg, "body text\r\n") {
		t.Fatalf("message must end with the body and CRLF:\n%s", msg)
	}
}

func TestVerificationCodeBody(t *testing.T) {
	body := VerificationCodeBody("04217395", 5*time.Minute)
	if !strings.Contains(body, "04217395") {
		t.Fatalf("body must carry the code:\n%s", body)
	}
	if !strings.Contains(body, "expire in 5 minutes") {
		t.Fatalf("body must state the expiry window:\n%s", body)
	}
}

func TestSendUnconfigured(t *testing.T) {
	sender := NewSMTPSender(Config{})
	if errSend := sender.Send("admin@example.com", "subject", "body"); errSend != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", errSend)
	}
}
