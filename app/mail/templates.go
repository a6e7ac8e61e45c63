package mail

import (
	"bytes"
	"html/template"
)

// LinkEmailData is the substitution context for confirmation-link emails.
type LinkEmailData struct {
	Username string
	Domain   string
	Link     string
	NewEmail string
}

const (
	SubjectActivation    = "Verify your pricewatch account"
	SubjectEmailChange   = "Confirm your new email address"
	SubjectPasswordReset = "Reset your pricewatch password"
)

var (
	activationTmpl = template.Must(template.New("activation").Parse(`
<html>
<body style="font-family: sans-serif; color: #333;">
	<p>Hi {{.Username}},</p>
	<p>Thanks for signing up at {{.Domain}}. Please confirm your email address to activate your account:</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not create this account, you can ignore this message.</p>
</body>
</html>`))

	emailChangeTmpl = template.Must(template.New("email_change").Parse(`
<html>
<body style="font-family: sans-serif; color: #333;">
	<p>Hi {{.Username}},</p>
	<p>You asked to change your account email to <b>{{.NewEmail}}</b>. Confirm the change by following this link:</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not request this, you can ignore this message and your address will stay as it is.</p>
</body>
</html>`))

	passwordResetTmpl = template.Must(template.New("password_reset").Parse(`
<html>
<body style="font-family: sans-serif; color: #333;">
	<p>Hi {{.Username}},</p>
	<p>You asked for a password reset at {{.Domain}}. Set a new password by following this link:</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not request this, you can ignore this message.</p>
</body>
</html>`))
)

func RenderActivation(data LinkEmailData) (string, string, error) {
	body, err := render(activationTmpl, data)
	return SubjectActivation, body, err
}

func RenderEmailChange(data LinkEmailData) (string, string, error) {
	body, err := render(emailChangeTmpl, data)
	return SubjectEmailChange, body, err
}

func RenderPasswordReset(data LinkEmailData) (string, string, error) {
	body, err := render(passwordResetTmpl, data)
	return SubjectPasswordReset, body, err
}

func render(tmpl *template.Template, data LinkEmailData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
