// Package mail renders newsletters into email form and delivers them through
// the Gmail REST API.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/airadev/newsroom/config"
)

const (
	gmailSendURL   = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// CredentialsError signals that the Gmail OAuth files are missing or unusable.
// It carries setup instructions so the CLI can fail with actionable output.
type CredentialsError struct {
	Path string
	Err  error
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("gmail credentials unavailable (%s): %v\n"+
		"Create an OAuth client in Google Cloud Console, enable the Gmail API,\n"+
		"download the client secret to %s and run the OAuth flow to produce a token file.",
		e.Path, e.Err, e.Path)
}

func (e *CredentialsError) Unwrap() error { return e.Err }

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// GmailClient sends mail through the Gmail REST API, refreshing its OAuth
// access token from the stored refresh token as needed.
type GmailClient struct {
	cfg    config.EmailConfig
	client *http.Client
	logger *log.Logger

	accessToken string
	tokenExpiry time.Time
}

func NewGmailClient(cfg config.EmailConfig) *GmailClient {
	return &GmailClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.New(log.Writer(), "[GMAIL] ", log.LstdFlags),
	}
}

type oauthCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

type oauthToken struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	Expiry       string `json:"expiry,omitempty"`
}

func (c *GmailClient) loadCredentials() (clientID, clientSecret, refreshToken string, err error) {
	raw, err := os.ReadFile(c.cfg.CredentialsPath)
	if err != nil {
		return "", "", "", &CredentialsError{Path: c.cfg.CredentialsPath, Err: err}
	}
	var creds oauthCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return "", "", "", &CredentialsError{Path: c.cfg.CredentialsPath, Err: err}
	}
	clientID, clientSecret = creds.Installed.ClientID, creds.Installed.ClientSecret
	if clientID == "" {
		clientID, clientSecret = creds.Web.ClientID, creds.Web.ClientSecret
	}
	if clientID == "" {
		return "", "", "", &CredentialsError{Path: c.cfg.CredentialsPath, Err: fmt.Errorf("no installed or web client in credentials file")}
	}

	rawTok, err := os.ReadFile(c.cfg.TokenPath)
	if err != nil {
		return "", "", "", &CredentialsError{Path: c.cfg.TokenPath, Err: err}
	}
	var tok oauthToken
	if err := json.Unmarshal(rawTok, &tok); err != nil {
		return "", "", "", &CredentialsError{Path: c.cfg.TokenPath, Err: err}
	}
	if tok.RefreshToken == "" {
		return "", "", "", &CredentialsError{Path: c.cfg.TokenPath, Err: fmt.Errorf("token file has no refresh_token")}
	}
	return clientID, clientSecret, tok.RefreshToken, nil
}

// token returns a valid access token, refreshing through the OAuth token
// endpoint when the cached one is missing or expiring within a minute.
func (c *GmailClient) token(ctx context.Context) (string, error) {
	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}
	clientID, clientSecret, refreshToken, err := c.loadCredentials()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oauth token refresh: status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("oauth token refresh: %w", err)
	}
	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// Send delivers one message and returns the Gmail message id.
func (c *GmailClient) Send(ctx context.Context, msg Message) (string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	raw := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(c.buildMIME(msg))
	body, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gmailSendURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gmail send: status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	c.logger.Printf("sent to %s (message %s)", msg.To, out.ID)
	return out.ID, nil
}

// buildMIME assembles a multipart/alternative message with text and HTML
// parts, quoted-printable-free by relying on UTF-8 8bit encoding.
func (c *GmailClient) buildMIME(msg Message) []byte {
	boundary := fmt.Sprintf("newsroom-%d", time.Now().UnixNano())
	from := c.cfg.From
	if c.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", c.cfg.FromName), c.cfg.From)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	fmt.Fprintf(&b, "\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&b, "Content-Transfer-Encoding: 8bit\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n", msg.TextBody)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&b, "Content-Transfer-Encoding: 8bit\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n", msg.HTMLBody)

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}
