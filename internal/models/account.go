package models

import (
	"strings"
	"time"
)

// Capability identifies what an account's protocol client can do
type Capability string

const (
	CapabilityRetrieval Capability = "retrieval"
	CapabilitySend      Capability = "send"
)

// Account represents a configured remote mail account
type Account struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Address     string `gorm:"uniqueIndex;not null;size:255" json:"address"`
	DisplayName string `gorm:"size:255" json:"display_name,omitempty"`

	// Retrieval protocol: "imap" (the only implemented variant)
	Protocol string `gorm:"size:20;default:imap" json:"protocol"`

	IMAPHost   string `gorm:"size:255" json:"imap_host"`
	IMAPPort   int    `gorm:"default:993" json:"imap_port"`
	IMAPUseSSL bool   `gorm:"default:true" json:"imap_use_ssl"`

	SMTPHost   string `gorm:"size:255" json:"smtp_host"`
	SMTPPort   int    `gorm:"default:587" json:"smtp_port"`
	SMTPUseTLS bool   `gorm:"default:true" json:"smtp_use_tls"`

	// Login name when it differs from the address, and the credential for
	// both protocols; the password is never serialized in responses
	Username string `gorm:"size:255" json:"username,omitempty"`
	Password string `gorm:"size:255" json:"-"`

	Enabled       bool      `gorm:"default:true" json:"enabled"`
	DefaultFolder string    `gorm:"size:100;default:INBOX" json:"default_folder"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Capabilities reports what the account is configured for. Retrieval requires
// an IMAP host, send an SMTP host; both may be present.
func (a *Account) Capabilities() []Capability {
	var caps []Capability
	if a.IMAPHost != "" {
		caps = append(caps, CapabilityRetrieval)
	}
	if a.SMTPHost != "" {
		caps = append(caps, CapabilitySend)
	}
	return caps
}

// HasCapability checks whether the account supports the given capability
func (a *Account) HasCapability(c Capability) bool {
	for _, have := range a.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// providerConfig holds well-known server settings for an email provider
type providerConfig struct {
	imapHost string
	smtpHost string
	smtpPort int
}

var knownProviders = map[string]providerConfig{
	"gmail.com":   {imapHost: "imap.gmail.com", smtpHost: "smtp.gmail.com", smtpPort: 587},
	"outlook.com": {imapHost: "outlook.office365.com", smtpHost: "smtp-mail.outlook.com", smtpPort: 587},
	"hotmail.com": {imapHost: "outlook.office365.com", smtpHost: "smtp-mail.outlook.com", smtpPort: 587},
	"yahoo.com":   {imapHost: "imap.mail.yahoo.com", smtpHost: "smtp.mail.yahoo.com", smtpPort: 587},
	"icloud.com":  {imapHost: "imap.mail.me.com", smtpHost: "smtp.mail.me.com", smtpPort: 587},
	"163.com":     {imapHost: "imap.163.com", smtpHost: "smtp.163.com", smtpPort: 587},
	"126.com":     {imapHost: "imap.126.com", smtpHost: "smtp.126.com", smtpPort: 587},
	"qq.com":      {imapHost: "imap.qq.com", smtpHost: "smtp.qq.com", smtpPort: 587},
}

// AutoConfigure fills in server settings from the address domain when they are
// not explicitly set. Unknown domains fall back to the imap./smtp. convention.
func (a *Account) AutoConfigure() {
	at := strings.LastIndex(a.Address, "@")
	if at < 0 || at == len(a.Address)-1 {
		return
	}
	domain := strings.ToLower(a.Address[at+1:])

	provider, known := knownProviders[domain]
	if a.IMAPHost == "" {
		if known {
			a.IMAPHost = provider.imapHost
		} else {
			a.IMAPHost = "imap." + domain
		}
	}
	if a.SMTPHost == "" {
		if known {
			a.SMTPHost = provider.smtpHost
		} else {
			a.SMTPHost = "smtp." + domain
		}
	}
	if a.IMAPPort == 0 {
		a.IMAPPort = 993
	}
	if a.SMTPPort == 0 {
		if known {
			a.SMTPPort = provider.smtpPort
		} else {
			a.SMTPPort = 587
		}
	}
	if a.Protocol == "" {
		a.Protocol = "imap"
	}
	if a.DefaultFolder == "" {
		a.DefaultFolder = "INBOX"
	}
}
