package mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds dialing and every SMTP exchange; 0 means 15s.
	Timeout time.Duration
}

// SendFunc delivers prepared messages. The SMTP client's DialAndSendWithContext satisfies it.
type SendFunc func(ctx context.Context, msgs ...*mail.Msg) error

type Mailer struct {
	from string
	send SendFunc
}

// New builds a mailer that requires STARTTLS and authenticates with PLAIN when a username is set.
func New(cfg Config) (*Mailer, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithDialContextFunc(deadlineDialer(cfg.Timeout)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: new client: %w", err)
	}
	return &Mailer{from: cfg.From, send: client.DialAndSendWithContext}, nil
}

// deadlineDialer puts a deadline on the raw connection so a server that
// accepts but never greets cannot hold the session open.
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline := time.Now().Add(timeout)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// WithSender replaces the SMTP transport.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	cp := *m
	cp.send = send
	return &cp
}

// Send renders tpl with data into an HTML message for one recipient.
func (m *Mailer) Send(ctx context.Context, to, subject string, tpl *template.Template, data any) error {
	if to == "" {
		return errors.New("mailer: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mailer: from %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	if err := msg.SetBodyHTMLTemplate(tpl, data); err != nil {
		return fmt.Errorf("mailer: render %s: %w", tpl.Name(), err)
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

var (
	thankYouTmpl = template.Must(template.New("thank_you").Parse(`<p>Hi {{.FirstName}},</p>
<p>Thank you for joining the <b>Chief AI Insights Beta Program</b>!</p>
<p>We'll review your inputs and share tailored insights soon.</p>
<p>Warm regards,<br><b>Team Chief AI Insights</b></p>
`))

	joinBetaAdminTmpl = template.Must(template.New("join_beta_admin").Parse(`<h3>New Join Beta Submission</h3>
<ul>
  <li><b>Name:</b> {{.Name}}</li>
  <li><b>Email:</b> {{.Email}}</li>
  <li><b>Company:</b> {{.Company}}</li>
  <li><b>Role:</b> {{.Role}}</li>
</ul>
`))

	contactAdminTmpl = template.Must(template.New("contact_admin").Parse(`<h3>New Contact Message</h3>
<ul>
  <li><b>Name:</b> {{.Name}}</li>
  <li><b>Email:</b> {{.Email}}</li>
</ul>
<p>{{.Message}}</p>
`))
)

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}
