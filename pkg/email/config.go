package email

// Config holds email delivery settings. Without a Postmark server token
// messages are written to DevDir instead of being sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@localhost"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:".emails"`
	// AppURL is the base of links placed in emails.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:3000"`
}
