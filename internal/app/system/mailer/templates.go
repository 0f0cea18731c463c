// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultOutreachSubject is used when the admin gives no subject.
const DefaultOutreachSubject = "Members Verify - BOI Verification"

// OutreachData holds data for the member invitation email.
type OutreachData struct {
	SiteName    string
	MemberName  string
	Association string
	FormLink    string

	// Optional admin-authored overrides. Message may contain HTML; it is
	// sanitized before use.
	Subject string
	Message string
}

// FormLink returns the public onboarding URL for token.
func FormLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/onboarding-members/" + token
}

var ugc = bluemonday.UGCPolicy()

// BuildOutreachEmail creates the invitation with both HTML and text bodies.
// A custom message replaces the default body copy; the form link is always
// appended.
func BuildOutreachEmail(to string, data OutreachData) Email {
	subject := strings.TrimSpace(data.Subject)
	if subject == "" {
		subject = DefaultOutreachSubject
	}
	return Email{
		To:       to,
		Subject:  subject,
		TextBody: buildOutreachText(data),
		HTMLBody: buildOutreachHTML(data),
	}
}

func buildOutreachText(data OutreachData) string {
	var buf bytes.Buffer
	if data.MemberName != "" {
		fmt.Fprintf(&buf, "Hello %s,\n\n", data.MemberName)
	}
	if msg := strings.TrimSpace(data.Message); msg != "" {
		// Strip all markup for the plain-text part.
		buf.WriteString(bluemonday.StrictPolicy().Sanitize(msg))
		buf.WriteString("\n\n")
	} else {
		if data.Association != "" {
			fmt.Fprintf(&buf, "The Corporate Transparency Act (CTA) requires %s to report Beneficial Ownership Information (BOI) for its board members to FinCEN.\n\n", data.Association)
		} else {
			buf.WriteString("The Corporate Transparency Act (CTA) requires your association to report Beneficial Ownership Information (BOI) for its board members to FinCEN.\n\n")
		}
		buf.WriteString("Please upload a photo ID (driver's license or passport), confirm your details, and submit the form.\n\n")
	}
	buf.WriteString("Open this link to complete the form:\n")
	buf.WriteString(data.FormLink + "\n\n")
	buf.WriteString("If you believe you received this email in error, you can safely ignore it.\n")
	return buf.String()
}

type outreachView struct {
	OutreachData
	Custom template.HTML
}

var outreachTmpl = template.Must(template.New("outreach").Parse(outreachHTMLTemplate))

func buildOutreachHTML(data OutreachData) string {
	v := outreachView{OutreachData: data}
	if msg := strings.TrimSpace(data.Message); msg != "" {
		v.Custom = template.HTML(ugc.Sanitize(msg))
	}
	var buf bytes.Buffer
	_ = outreachTmpl.Execute(&buf, v)
	return buf.String()
}

const outreachHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Identity Verification</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #1d4ed8;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 28px 32px; font-size: 15px; color: #374151; line-height: 1.5;">
              {{if .MemberName}}<p style="margin: 0 0 16px;">Hello {{.MemberName}},</p>{{end}}
              {{if .Custom}}
              <div style="margin: 0 0 24px;">{{.Custom}}</div>
              {{else}}
              <p style="margin: 0 0 16px;">The Corporate Transparency Act (CTA) requires {{if .Association}}{{.Association}}{{else}}your association{{end}} to report Beneficial Ownership Information (BOI) to FinCEN. Beneficial owners of an HOA include all board members and anyone owning more than 25% of the units.</p>
              <ol style="margin: 0 0 24px; padding-left: 20px;">
                <li>Click the button below</li>
                <li>Upload a photo ID (driver's license or passport)</li>
                <li>Certify the information is correct and submit</li>
              </ol>
              {{end}}
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.FormLink}}" style="display: inline-block; padding: 14px 32px; background-color: #1d4ed8; color: #ffffff; text-decoration: none; font-size: 16px; border-radius: 6px;">
                      Complete verification
                    </a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you believe you received this email in error, you can safely ignore it.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
