package notify

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

type capturedSMTP struct {
	addr string
	from string
	to   []string
	data []byte
	err  error
}

func newTestSMTPSender(c *capturedSMTP) *SMTPSender {
	s := NewSMTPSender(SMTPConfig{
		Host:      "smtp.example.com",
		Username:  "user",
		Password:  "pass",
		FromEmail: "noreply@example.com",
		FromName:  "Denver 1031",
	}, logging.New("error"))
	s.now = func() time.Time { return time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC) }
	s.send = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.data = addr, from, to, msg
		return c.err
	}
	return s
}

func TestNewSMTPSender_NilWithoutHost(t *testing.T) {
	assert.Nil(t, NewSMTPSender(SMTPConfig{}, nil))
}

func TestSMTPSender_SendsMultipartAlternative(t *testing.T) {
	captured := &capturedSMTP{}
	sender := newTestSMTPSender(captured)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "ops@example.com",
		ReplyTo: "jane@example.com",
		Subject: "New 1031 Exchange Lead: Jane",
		Body:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", captured.addr)
	assert.Equal(t, "noreply@example.com", captured.from)
	assert.Equal(t, []string{"ops@example.com"}, captured.to)

	mr, err := mail.CreateReader(bytes.NewReader(captured.data))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "New 1031 Exchange Lead: Jane", subject)
	replyTo, err := mr.Header.AddressList("Reply-To")
	require.NoError(t, err)
	require.Len(t, replyTo, 1)
	assert.Equal(t, "jane@example.com", replyTo[0].Address)

	var bodies []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(part.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
	}
	assert.Equal(t, []string{"plain body", "<p>html body</p>"}, bodies)
}

func TestSMTPSender_RelayError(t *testing.T) {
	captured := &capturedSMTP{err: errors.New("550 mailbox unavailable")}
	sender := newTestSMTPSender(captured)

	err := sender.Send(context.Background(), EmailMessage{To: "ops@example.com", Body: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	captured := &capturedSMTP{}
	sender := newTestSMTPSender(captured)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, EmailMessage{To: "ops@example.com"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, captured.data)
}

// stallingSMTPServer accepts connections and never sends a greeting.
func stallingSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSMTPSender_StalledRelayHonorsTimeout(t *testing.T) {
	host, port := stallingSMTPServer(t)
	sender := NewSMTPSender(SMTPConfig{
		Host:      host,
		Port:      port,
		FromEmail: "noreply@example.com",
		Timeout:   100 * time.Millisecond,
	}, logging.New("error"))

	start := time.Now()
	err := sender.Send(context.Background(), EmailMessage{To: "ops@example.com", Body: "x"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSender_StalledRelayHonorsContextDeadline(t *testing.T) {
	host, port := stallingSMTPServer(t)
	sender := NewSMTPSender(SMTPConfig{
		Host:      host,
		Port:      port,
		FromEmail: "noreply@example.com",
		Timeout:   time.Minute,
	}, logging.New("error"))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, EmailMessage{To: "ops@example.com", Body: "x"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// fakeRelay speaks just enough SMTP for one message without TLS or AUTH.
func fakeRelay(t *testing.T) (host string, port int, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	out := make(chan string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(line string) { _, _ = io.WriteString(conn, line+"\r\n") }
		reply("220 relay ready")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					reply("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 relay")
			case cmd == "DATA":
				inData = true
				reply("354 go ahead")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, out
}

func TestSMTPSender_DeliversThroughRelay(t *testing.T) {
	host, port, received := fakeRelay(t)
	sender := NewSMTPSender(SMTPConfig{
		Host:      host,
		Port:      port,
		FromEmail: "noreply@example.com",
		Timeout:   2 * time.Second,
	}, logging.New("error"))

	err := sender.Send(context.Background(), EmailMessage{To: "ops@example.com", Subject: "New lead", Body: "plain body"})
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Contains(t, data, "Subject: New lead")
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not receive the message")
	}
}
