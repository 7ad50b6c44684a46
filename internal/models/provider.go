package models

import (
	"errors"
	"fmt"
)

// Provider identifies which email provider an account is registered with.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderUmbler  Provider = "umbler"
)

// ErrUnknownProvider is returned when a provider tag has no configured endpoints.
// This is a configuration error, not a runtime one: accounts with an unknown
// tag must be rejected at creation time.
var ErrUnknownProvider = errors.New("unknown email provider")

// Endpoints holds the connection endpoints for one provider.
type Endpoints struct {
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
}

// IMAPAddress returns the host:port address for the IMAP server.
func (e Endpoints) IMAPAddress() string {
	return fmt.Sprintf("%s:%d", e.IMAPHost, e.IMAPPort)
}

// providerEndpoints maps each supported provider tag to its endpoints.
// All providers use IMAP over implicit TLS on port 993.
var providerEndpoints = map[Provider]Endpoints{
	ProviderGmail: {
		IMAPHost: "imap.gmail.com",
		IMAPPort: 993,
		SMTPHost: "smtp.gmail.com",
		SMTPPort: 587,
	},
	ProviderOutlook: {
		IMAPHost: "outlook.office365.com",
		IMAPPort: 993,
		SMTPHost: "smtp.office365.com",
		SMTPPort: 587,
	},
	ProviderUmbler: {
		IMAPHost: "mail.umbler.com",
		IMAPPort: 993,
		SMTPHost: "smtp.umbler.com",
		SMTPPort: 587,
	},
}

// Endpoints returns the connection endpoints for the provider.
// Unknown tags return ErrUnknownProvider.
func (p Provider) Endpoints() (Endpoints, error) {
	endpoints, ok := providerEndpoints[p]
	if !ok {
		return Endpoints{}, fmt.Errorf("%w: %q", ErrUnknownProvider, string(p))
	}
	return endpoints, nil
}

// Valid reports whether the provider tag is one of the supported providers.
func (p Provider) Valid() bool {
	_, ok := providerEndpoints[p]
	return ok
}
