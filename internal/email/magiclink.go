package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttpl "text/template"
	"time"
)

// MagicLinkVars son las variables del correo de acceso.
type MagicLinkVars struct {
	AppName string
	Link    string
	TTL     string
}

var magicHTML = template.Must(template.New("magic_html").Parse(`<!doctype html>
<html>
  <body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
    <h2>Acceso a {{.AppName}}</h2>
    <p>Alguien (esperemos que vos) pidió acceso a <strong>{{.AppName}}</strong> con este correo.</p>
    <p style="margin: 24px 0;">
      <a href="{{.Link}}" style="background:#111;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;">Entrar</a>
    </p>
    <p>El enlace vence en {{.TTL}} y sirve una sola vez.</p>
    <p style="color:#888;font-size:12px;">Si no fuiste vos, ignorá este correo.</p>
  </body>
</html>`))

var magicText = texttpl.Must(texttpl.New("magic_txt").Parse(`Acceso a {{.AppName}}

Alguien (esperemos que vos) pidió acceso a {{.AppName}} con este correo.

Entrá con este enlace (vence en {{.TTL}}, sirve una sola vez):

{{.Link}}

Si no fuiste vos, ignorá este correo.`))

// BuildMagicLink renderiza el asunto y los cuerpos del correo de acceso.
func BuildMagicLink(appName, link string, ttl time.Duration) (subject, htmlBody, textBody string, err error) {
	vars := MagicLinkVars{AppName: appName, Link: link, TTL: formatTTL(ttl)}

	var hb bytes.Buffer
	if err := magicHTML.Execute(&hb, vars); err != nil {
		return "", "", "", fmt.Errorf("email: render html: %w", err)
	}
	var tb bytes.Buffer
	if err := magicText.Execute(&tb, vars); err != nil {
		return "", "", "", fmt.Errorf("email: render text: %w", err)
	}
	return fmt.Sprintf("Tu acceso a %s", appName), hb.String(), tb.String(), nil
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d horas", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutos", int(d.Minutes()))
}
