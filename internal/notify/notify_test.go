package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"net/url"
	"strings"
	"testing"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailtoLink(t *testing.T) {
	t.Parallel()

	link := MailtoLink(Message{
		To:      "ada@example.com",
		Subject: "Your Ticket: 2025 Global Summit",
		Body:    "Hello Ada,\n\nHere is your ticket.",
	})

	require.True(t, strings.HasPrefix(link, "mailto:ada@example.com?"))
	assert.NotContains(t, link, "+")

	q, err := url.ParseQuery(strings.SplitN(link, "?", 2)[1])
	require.NoError(t, err)
	assert.Equal(t, "Your Ticket: 2025 Global Summit", q.Get("subject"))
	assert.Equal(t, "Hello Ada,\n\nHere is your ticket.", q.Get("body"))
}

func TestMailtoLink_EscapesRecipient(t *testing.T) {
	t.Parallel()

	link := MailtoLink(Message{To: "ops?cc=x&y@example.com", Subject: "s", Body: "b"})

	to, query, ok := strings.Cut(strings.TrimPrefix(link, "mailto:"), "?")
	require.True(t, ok)
	unescaped, err := url.PathUnescape(to)
	require.NoError(t, err)
	assert.Equal(t, "ops?cc=x&y@example.com", unescaped)

	q, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, q["body"])
	assert.Equal(t, []string{"s"}, q["subject"])
	assert.NotContains(t, q, "cc")
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	ctx := logging.WithLogger(context.Background(), logging.New(buf, "text", "info"))

	require.NoError(t, LogNotifier{}.Notify(ctx, Message{To: "ada@example.com", Subject: "hi"}))
	assert.Contains(t, buf.String(), "to=ada@example.com")
	assert.ErrorIs(t, LogNotifier{}.Notify(ctx, Message{}), ErrNoRecipient)
}

func TestSMTPNotifier(t *testing.T) {
	t.Parallel()

	n, err := NewSMTPNotifier(SMTPConfig{Host: "mail.example.test", From: "tickets@example.test", Username: "u", Password: "p"})
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err = n.Notify(context.Background(), Message{To: "ada@example.com", Subject: "Ticket", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.test:587", gotAddr)
	assert.Equal(t, "tickets@example.test", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Ticket\r\n")
	assert.Contains(t, string(gotMsg), "line1\r\nline2")

	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	err = n.Notify(context.Background(), Message{To: "ada@example.com"})
	assert.ErrorContains(t, err, "relay down")

	_, err = NewSMTPNotifier(SMTPConfig{From: "x@example.test"})
	assert.Error(t, err)
}
