package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	"strings"
	textTemplate "text/template"
	"time"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Service struct {
	config        *config.Config
	client        *mail.Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	mailCfg := &cfg.Mail

	if logger != nil {
		logger.Info("initializing mail service",
			zap.String("host", mailCfg.Host),
			zap.Int("port", mailCfg.Port),
			zap.String("encryption", mailCfg.Encryption),
			zap.String("from_address", mailCfg.FromAddress))
	}

	if mailCfg.FromAddress == "" {
		if logger != nil {
			logger.Error("mail service initialization failed: FROM_ADDRESS is required")
		}
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(mailCfg.Port),
	}

	if mailCfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(mailCfg.Username))
	}
	if mailCfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(mailCfg.Password))
	}

	switch mailCfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(mailCfg.Host, clientOpts...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", mailCfg.Host))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized successfully")
	}
	return service, nil
}

// loadTemplates parses optional operator-supplied overrides for the built-in
// OTP message bodies.
func (s *Service) loadTemplates() error {
	dir := s.config.Mail.TemplatesDir
	if dir == "" {
		if s.logger != nil {
			s.logger.Debug("no template directory configured, using built-in otp message")
		}
		return nil
	}

	htmlPattern := filepath.Join(dir, "*.html")
	textPattern := filepath.Join(dir, "*.txt")

	var err error
	s.htmlTemplates, err = htmlTemplate.ParseGlob(htmlPattern)
	if err != nil && err.Error() != "template: pattern matches no files: "+htmlPattern {
		return fmt.Errorf("failed to parse HTML templates: %w", err)
	}

	s.textTemplates, err = textTemplate.ParseGlob(textPattern)
	if err != nil && err.Error() != "template: pattern matches no files: "+textPattern {
		return fmt.Errorf("failed to parse text templates: %w", err)
	}

	return nil
}

func (s *Service) newMessage() *mail.Msg {
	message := mail.NewMsg()

	fromAddr := s.config.Mail.FromAddress
	if s.config.Mail.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.Mail.FromName, s.config.Mail.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		panic(fmt.Sprintf("failed to set FROM address: %s", err))
	}

	return message
}

func (s *Service) send(message *mail.Msg) error {
	startTime := time.Now()
	err := s.client.DialAndSend(message)
	duration := time.Since(startTime)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", duration))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent successfully",
			zap.Duration("send_duration", duration))
	}
	return nil
}

// SendOTPEmail delivers a verification code. The code itself never appears
// in logs, only its masked form.
func (s *Service) SendOTPEmail(to, code string, expiryMinutes int) error {
	if s.logger != nil {
		s.logger.Info("sending otp email",
			zap.String("recipient", to),
			zap.String("code", otp.MaskCode(code)))
	}

	message := s.newMessage()

	if err := message.To(to); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to set TO address",
				zap.Error(err),
				zap.String("recipient", to))
		}
		return fmt.Errorf("failed to set TO address: %w", err)
	}

	message.Subject(fmt.Sprintf("%s - Your Verification Code", s.config.App.Name))

	data := map[string]any{
		"AppName":       s.config.App.Name,
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	}

	if !s.renderOverride(message, data) {
		message.SetBodyString(mail.TypeTextHTML, s.builtinHTMLBody(code, expiryMinutes))
		message.AddAlternativeString(mail.TypeTextPlain, s.builtinTextBody(code, expiryMinutes))
	}

	return s.send(message)
}

// renderOverride applies operator templates named "otp_code" when present.
func (s *Service) renderOverride(message *mail.Msg, data map[string]any) bool {
	var rendered bool

	if s.htmlTemplates != nil {
		if tmpl := s.htmlTemplates.Lookup("otp_code.html"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err == nil {
				message.SetBodyString(mail.TypeTextHTML, buf.String())
				rendered = true
			} else if s.logger != nil {
				s.logger.Error("failed to execute otp html template", zap.Error(err))
			}
		}
	}

	if s.textTemplates != nil {
		if tmpl := s.textTemplates.Lookup("otp_code.txt"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err == nil {
				if rendered {
					message.AddAlternativeString(mail.TypeTextPlain, buf.String())
				} else {
					message.SetBodyString(mail.TypeTextPlain, buf.String())
					rendered = true
				}
			} else if s.logger != nil {
				s.logger.Error("failed to execute otp text template", zap.Error(err))
			}
		}
	}

	return rendered
}

func (s *Service) builtinHTMLBody(code string, expiryMinutes int) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset='utf-8'><style>")
	b.WriteString("body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }")
	b.WriteString(".container { max-width: 600px; margin: 0 auto; padding: 20px; }")
	b.WriteString(".otp-code { font-size: 32px; font-weight: bold; text-align: center; letter-spacing: 5px; margin: 20px 0; padding: 15px; border: 2px dashed #1976D2; border-radius: 8px; }")
	b.WriteString(".warning { background-color: #fff3cd; padding: 15px; border-radius: 5px; margin: 20px 0; }")
	b.WriteString("</style></head><body><div class='container'>")
	fmt.Fprintf(&b, "<h2>%s</h2>", htmlTemplate.HTMLEscapeString(s.config.App.Name))
	b.WriteString("<p>Please use the following verification code:</p>")
	fmt.Fprintf(&b, "<div class='otp-code'>%s</div>", htmlTemplate.HTMLEscapeString(code))
	b.WriteString("<div class='warning'><strong>Important:</strong><br>")
	fmt.Fprintf(&b, "This code will expire in <strong>%d minutes</strong>.<br>", expiryMinutes)
	b.WriteString("Do not share this code with anyone.<br>")
	b.WriteString("If you did not request this code, please ignore this email.</div>")
	b.WriteString("<p>This is an automated message. Please do not reply to this email.</p>")
	b.WriteString("</div></body></html>")
	return b.String()
}

func (s *Service) builtinTextBody(code string, expiryMinutes int) string {
	return fmt.Sprintf(
		"%s\n\nYour verification code is: %s\n\nThis code will expire in %d minutes.\nDo not share this code with anyone.\nIf you did not request this code, please ignore this email.\n",
		s.config.App.Name, code, expiryMinutes)
}

// SendPlain is kept for operator notices outside the OTP flow.
func (s *Service) SendPlain(to []string, subject, body string) error {
	if s.logger != nil {
		s.logger.Info("sending plain text email",
			zap.Strings("recipients", to),
			zap.String("subject", subject))
	}

	message := s.newMessage()

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, body)

	return s.send(message)
}
