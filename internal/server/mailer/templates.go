package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var verificationHTML = template.Must(template.New("verify").Parse(
	`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to the Asset Management System, {{.Username}}!</h2>
<p>Please verify your email address to activate your account.</p>
<p><a href="{{.Link}}" style="background-color: #1976d2; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Verify Email</a></p>
<p>Or copy this link into your browser:</p>
<p>{{.Link}}</p>
<p>This link expires in {{.Validity}}.</p>
</div>`))

// VerificationLink builds the frontend link that confirms token.
func VerificationLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/verify-email/" + token
}

// VerificationEmail builds the message sent after registration and on resend.
func VerificationEmail(to, username, appURL, token, validity string) (Message, error) {
	link := VerificationLink(appURL, token)

	var html bytes.Buffer
	err := verificationHTML.Execute(&html, struct{ Username, Link, Validity string }{username, link, validity})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}

	text := fmt.Sprintf("Welcome to the Asset Management System, %s!\n\n"+
		"Verify your email address by opening this link:\n%s\n\nThis link expires in %s.\n",
		username, link, validity)

	return Message{
		To:      to,
		Subject: "Verify your email address",
		Text:    text,
		HTML:    html.String(),
	}, nil
}
