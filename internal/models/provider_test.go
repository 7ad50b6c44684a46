package models

import (
	"errors"
	"testing"
)

func TestProviderEndpoints(t *testing.T) {
	tests := []struct {
		provider Provider
		imapAddr string
		smtpHost string
	}{
		{ProviderGmail, "imap.gmail.com:993", "smtp.gmail.com"},
		{ProviderOutlook, "outlook.office365.com:993", "smtp.office365.com"},
		{ProviderUmbler, "mail.umbler.com:993", "smtp.umbler.com"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			endpoints, err := tt.provider.Endpoints()
			if err != nil {
				t.Fatalf("Endpoints() failed: %v", err)
			}
			if got := endpoints.IMAPAddress(); got != tt.imapAddr {
				t.Errorf("IMAPAddress() = %q, want %q", got, tt.imapAddr)
			}
			if endpoints.SMTPHost != tt.smtpHost {
				t.Errorf("SMTPHost = %q, want %q", endpoints.SMTPHost, tt.smtpHost)
			}
			if !tt.provider.Valid() {
				t.Errorf("Valid() = false for supported provider %q", tt.provider)
			}
		})
	}
}

func TestProviderEndpointsUnknown(t *testing.T) {
	_, err := Provider("yahoo").Endpoints()
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Expected ErrUnknownProvider, got: %v", err)
	}

	if Provider("yahoo").Valid() {
		t.Error("Valid() = true for unsupported provider")
	}

	_, err = Provider("").Endpoints()
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Expected ErrUnknownProvider for empty tag, got: %v", err)
	}
}

func TestDefaultFolders(t *testing.T) {
	folders := DefaultFolders()
	if len(folders) != 1 {
		t.Fatalf("Expected a single default folder, got %d", len(folders))
	}
	if folders[0].Path != "INBOX" || folders[0].Name != "Caixa de Entrada" {
		t.Errorf("Unexpected default folder: %+v", folders[0])
	}
}
