package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"faculty-ranker-api/config"
)

//go:generate mockgen -destination=mocks/notifier_mock.go -package=mocks faculty-ranker-api/services RejectionNotifier,AccountNotifier

// RejectionNotifier tells a submitter their faculty proposal was rejected.
type RejectionNotifier interface {
	NotifyRejection(ctx context.Context, to, facultyName string) error
}

// AccountNotifier delivers signup and login mails.
type AccountNotifier interface {
	SendOTP(ctx context.Context, to, otp string) error
	SendLocalPassword(ctx context.Context, to, password string) error
}

// MailNotifier renders notification mails and hands them to a config.Mailer.
type MailNotifier struct {
	mailer config.Mailer
}

func NewMailNotifier(mailer config.Mailer) *MailNotifier {
	return &MailNotifier{mailer: mailer}
}

func (n *MailNotifier) NotifyRejection(ctx context.Context, to, facultyName string) error {
	subject := "Faculty Rejected: " + facultyName
	body := paragraphs(
		fmt.Sprintf("Your submission for the faculty %q was rejected by the admin.", facultyName),
		"Repeated spam or low-quality entries may lead to a ban. Please ensure your submissions are accurate and relevant.",
		"- Faculty Ranker Team",
	)
	return n.mailer.Send(ctx, []string{to}, subject, body)
}

func (n *MailNotifier) SendOTP(ctx context.Context, to, otp string) error {
	return n.mailer.Send(ctx, []string{to}, "Your OTP Code", paragraphs("Your OTP code is "+otp))
}

func (n *MailNotifier) SendLocalPassword(ctx context.Context, to, password string) error {
	body := paragraphs(fmt.Sprintf("Your temporary password is: %s. Please change it after logging in.", password))
	return n.mailer.Send(ctx, []string{to}, "Your Local Login Password", body)
}

func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}
