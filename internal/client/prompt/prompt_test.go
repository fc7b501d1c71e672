package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestPlainPrompt_RequestPassword(t *testing.T) {
	var out bytes.Buffer
	p := NewPlainPrompt(strings.NewReader("  hunter2 \nsecond\n"), &out)

	got, err := p.RequestPassword(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("password = %q; want %q", got, "hunter2")
	}
	if !strings.Contains(out.String(), "Admin password") {
		t.Errorf("expected label to be printed, got %q", out.String())
	}

	got, _ = p.RequestPassword(context.Background())
	if got != "second" {
		t.Errorf("second password = %q; want %q", got, "second")
	}
}

func TestPlainPrompt_EOFDeclines(t *testing.T) {
	p := NewPlainPrompt(strings.NewReader(""), &bytes.Buffer{})
	got, err := p.RequestPassword(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty password on EOF, got %q", got)
	}
}

func TestPlainPrompt_LastLineWithoutNewline(t *testing.T) {
	p := NewPlainPrompt(strings.NewReader("pw"), &bytes.Buffer{})
	got, _ := p.RequestPassword(context.Background())
	if got != "pw" {
		t.Errorf("password = %q; want %q", got, "pw")
	}
}

func TestPlainPrompt_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	p := NewPlainPrompt(strings.NewReader("pw\n"), &out)
	if _, err := p.RequestPassword(ctx); err == nil {
		t.Error("expected context error")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed after cancellation, got %q", out.String())
	}
}
