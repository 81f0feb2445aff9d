// Package notice wires the notification templates this service sends: the
// one-time passcode email and the booking confirmation email.
package notice

import (
	"embed"
	"log/slog"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/notification"
)

const (
	// OtpCodeNotice carries the six-digit verification code.
	// Template data: Name, Code, ExpiryMinutes, Brand, Position.
	OtpCodeNotice notification.NoticeType = "otp_code"

	// BookingConfirmationNotice carries the one-time booking confirmation
	// link. Template data: Name, ConfirmationLink, ExpiryHours, Brand, Position.
	BookingConfirmationNotice notification.NoticeType = "booking_confirmation"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager builds a manager with the email notifier and every
// notice this service sends.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	if err := RegisterNotices(notificationManager); err != nil {
		return nil, err
	}

	return notificationManager, nil
}

// RegisterNotices adds this service's notice templates to an existing manager.
// Split out so tests can register them against a mock notifier.
func RegisterNotices(nm *notification.NotificationManager) error {
	err := nm.RegisterNotice(OtpCodeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your interview verification code",
		Html:    loadTemplate("templates/email/otp_code.html"),
	})
	if err != nil {
		slog.Error("failed to register otp code notice", "error", err)
		return err
	}

	err = nm.RegisterNotice(BookingConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Confirm your interview booking",
		Html:    loadTemplate("templates/email/booking_confirmation.html"),
	})
	if err != nil {
		slog.Error("failed to register booking confirmation notice", "error", err)
		return err
	}

	return nil
}
