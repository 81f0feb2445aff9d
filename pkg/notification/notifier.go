package notification

// NotificationSystem represents a delivery channel (e.g. email).
type NotificationSystem string

// NoticeType identifies a registered notice (e.g. "otp_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	ExampleNotice NoticeType = "example"
)

// NoticeTemplate holds the subject and body templates for one notice on one
// system. At least one of Text or Html must be set.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData carries the recipient and the template variables for a
// single send.
type NotificationData struct {
	To   string
	Data map[string]string
}

// Notifier delivers a rendered notice over one system.
type Notifier interface {
	Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error
}
