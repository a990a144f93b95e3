// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
	"strings"
)

type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

type buttonTemplateData struct {
	BackgroundColor string
	URL             string
	TextColor       string
	Text            string
}

type codeBoxTemplateData struct {
	Code string
}

// Compiled templates for email components
var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; mso-table-lspace: 0pt; mso-table-rspace: 0pt; box-sizing: border-box; width: 100%; min-width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; mso-table-lspace: 0pt; mso-table-rspace: 0pt; width: auto;">
              <tbody>
                <tr>
                  <td style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; border-radius: 4px; text-align: center; background-color: {{.BackgroundColor}};" valign="top" align="center" bgcolor="{{.BackgroundColor}}">
                    <a href="{{.URL}}" target="_blank" style="border: solid 2px {{.BackgroundColor}}; border-radius: 4px; box-sizing: border-box; cursor: pointer; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; border-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
                  </td>
                </tr>
              </tbody>
            </table>
          </td>
        </tr>
      </tbody>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.Text}}</p>`))

	headingTemplate = template.Must(template.New("emailHeading").Parse(`<h2 style="font-family: Helvetica, sans-serif; font-size: 22px; font-weight: bold; margin: 0; margin-bottom: 16px; color: #1a1a1a;">{{.Text}}</h2>`))

	codeBoxTemplate = template.Must(template.New("emailCodeBox").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; mso-table-lspace: 0pt; mso-table-rspace: 0pt; width: 100%; margin-bottom: 16px;" width="100%">
      <tbody>
        <tr>
          <td align="center" style="font-family: 'Courier New', Courier, monospace; font-size: 24px; font-weight: bold; letter-spacing: 4px; vertical-align: top; border-radius: 4px; text-align: center; background-color: #f4f5f6; border: 1px solid #eaebed; padding: 16px;" valign="top">{{.Code}}</td>
        </tr>
      </tbody>
    </table>`))
)

type textTemplateData struct {
	Text string
}

func GetButton(props ButtonProps) string {
	backgroundColor := props.BackgroundColor
	if backgroundColor == "" {
		backgroundColor = "#0867ec"
	}

	textColor := props.TextColor
	if textColor == "" {
		textColor = "#ffffff"
	}

	sanitizedURL := sanitizeEmailURL(props.URL)
	if sanitizedURL == "" {
		log.Printf("Invalid URL in email button: %s", props.URL)
		return ""
	}

	data := buttonTemplateData{
		BackgroundColor: backgroundColor,
		URL:             sanitizedURL,
		TextColor:       textColor,
		Text:            props.Text,
	}

	var buf bytes.Buffer
	if err := buttonTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing email button template: %v", err)
		return ""
	}

	return buf.String()
}

// GetParagraph renders body text. Content is escaped by the template engine.
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, textTemplateData{Text: text}); err != nil {
		log.Printf("Error executing email paragraph template: %v", err)
		return ""
	}
	return buf.String()
}

func GetHeading(text string) string {
	var buf bytes.Buffer
	if err := headingTemplate.Execute(&buf, textTemplateData{Text: text}); err != nil {
		log.Printf("Error executing email heading template: %v", err)
		return ""
	}
	return buf.String()
}

// GetCodeBox renders a credential or code in a prominent monospace block.
func GetCodeBox(code string) string {
	var buf bytes.Buffer
	if err := codeBoxTemplate.Execute(&buf, codeBoxTemplateData{Code: code}); err != nil {
		log.Printf("Error executing email code box template: %v", err)
		return ""
	}
	return buf.String()
}

// sanitizeEmailURL allows only absolute http(s) URLs in email links.
func sanitizeEmailURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}

	return parsed.String()
}
