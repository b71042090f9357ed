package mail

import (
	"bytes"
	"html/template"
)

// OTP email purposes.
const (
	PurposeChangePassword = "change-password"
	PurposeResetPassword  = "reset-password"
)

var otpTemplate = template.Must(template.New("otp").Parse(`
<h2>{{.Heading}}</h2>
<p>{{.Intro}}</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>This code expires in {{.Minutes}} minutes.</p>
<p>If you did not request this, you can ignore this email and your password will stay the same.</p>
`))

// OTPMessage renders the email carrying code for purpose to the address to.
func OTPMessage(to, code, purpose string, minutes int) (Message, error) {
	data := struct {
		Heading string
		Intro   string
		Code    string
		Minutes int
	}{Code: code, Minutes: minutes}

	subject := "Your password reset code"
	switch purpose {
	case PurposeChangePassword:
		subject = "Confirm your password change"
		data.Heading = "Password change requested"
		data.Intro = "Use this code to confirm the new password for your RoleCraft admin account:"
	default:
		data.Heading = "Password reset requested"
		data.Intro = "Use this code to reset the password for your RoleCraft admin account:"
	}

	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTMLBody: buf.String()}, nil
}
